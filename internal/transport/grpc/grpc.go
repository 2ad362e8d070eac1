// Package grpc implements the gRPC transport of the studio.
//
// The Studio service (anigen.v1.Studio) is described by hand and encoded
// with a JSON codec, so any gRPC client that selects the "json"
// content-subtype can call it. The standard grpc.health.v1 service is
// registered alongside.
package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/anigen/anigen/internal/workflow"
)

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port   int
	server *grpc.Server
	health *health.Server
}

// New creates a new gRPC transport on the given port. adminToken guards the
// Credit RPC; empty disables it.
func New(port int, studioManager *workflow.Manager, adminToken string) *Transport {
	t := &Transport{
		port:   port,
		server: grpc.NewServer(),
		health: health.NewServer(),
	}
	t.server.RegisterService(&studioServiceDesc, &studio{manager: studioManager, adminToken: adminToken})
	healthpb.RegisterHealthServer(t.server, t.health)
	return t
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen starts the gRPC server. It blocks until the context is cancelled.
func (t *Transport) Listen(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	slog.Info("grpc transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		t.Close()
	}()

	return t.Serve(lis)
}

// Serve accepts connections on lis until the server stops.
func (t *Transport) Serve(lis net.Listener) error {
	t.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	t.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return t.server.Serve(lis)
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	t.health.Shutdown()
	t.server.GracefulStop()
	return nil
}
