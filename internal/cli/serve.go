package cli

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anigen/anigen/internal/billing"
	"github.com/anigen/anigen/internal/health"
	"github.com/anigen/anigen/internal/transport"
	grpctransport "github.com/anigen/anigen/internal/transport/grpc"
	httptransport "github.com/anigen/anigen/internal/transport/http"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the studio daemon (HTTP, gRPC and health endpoints)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			cmd.SetContext(ctx)
			return serve(ctx, opts, cmd)
		},
	}
}

func serve(ctx context.Context, opts *rootOptions, cmd *cobra.Command) error {
	a, err := opts.openApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("app close error", "error", err)
		}
	}()
	cfg := a.Config
	slog.Info("anigen starting", "version", version, "store", cfg.Store.Driver)

	var transports []transport.Transport
	if cfg.Transports.HTTP.Enabled {
		hopts := httptransport.Options{
			AdminToken: cfg.Transports.HTTP.AdminToken,
			Swagger:    cfg.Transports.HTTP.Swagger,
		}
		if cfg.Billing.Stripe.Enabled {
			hopts.Webhook = billing.NewHandler(cfg.Billing.Stripe.WebhookSecret, a.Book)
		}
		transports = append(transports, httptransport.New(cfg.Transports.HTTP.Port, a.Studio, hopts))
	}
	if cfg.Transports.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.Transports.GRPC.Port, a.Studio, cfg.Transports.HTTP.AdminToken))
	}
	if len(transports) == 0 {
		return errors.New("no transports enabled, enable at least one in config")
	}

	healthServer := health.New(cfg.Server.HealthPort, cfg.Metrics.Enabled)
	healthServer.AddCheck("store", a.Ping)
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	var wg sync.WaitGroup
	for _, t := range transports {
		wg.Add(1)
		go func(t transport.Transport) {
			defer wg.Done()
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx); err != nil {
				slog.Error("transport failed", "name", t.Name(), "error", err)
			}
		}(t)
	}

	healthServer.SetReady(true)
	slog.Info("anigen ready",
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort)

	<-ctx.Done()
	healthServer.SetReady(false)
	slog.Info("shutdown signal received, draining...")

	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	wg.Wait()
	slog.Info("anigen stopped")
	return nil
}
