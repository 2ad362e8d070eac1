package grpc

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/anigen/anigen/internal/domain"
	"github.com/anigen/anigen/internal/transport"
	"github.com/anigen/anigen/internal/workflow"
)

// Client calls a remote Studio service.
type Client struct {
	conn       *grpc.ClientConn
	adminToken string
}

// Dial creates a client for target. Extra options are appended to the
// defaults (plaintext, JSON codec).
func Dial(target, adminToken string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", target, err)
	}
	return &Client{conn: conn, adminToken: adminToken}, nil
}

// Close releases the connection.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) invoke(ctx context.Context, method string, req, reply any) error {
	return c.conn.Invoke(ctx, "/"+serviceName+"/"+method, req, reply)
}

// Options fetches the parameter catalog.
func (c *Client) Options(ctx context.Context) (*transport.Options, error) {
	reply := new(transport.Options)
	if err := c.invoke(ctx, "Options", &OptionsRequest{}, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// Balance fetches an account's balance.
func (c *Client) Balance(ctx context.Context, accountID string) (*BalanceReply, error) {
	reply := new(BalanceReply)
	if err := c.invoke(ctx, "Balance", &AccountRequest{AccountID: accountID}, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// Compose runs a music request on the server.
func (c *Client) Compose(ctx context.Context, accountID string, params domain.Params, includeAudio bool) (*ComposeReply, error) {
	reply := new(ComposeReply)
	req := &ComposeRequest{AccountID: accountID, Params: params, IncludeAudio: includeAudio}
	if err := c.invoke(ctx, "Compose", req, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// Illustrate runs an image request on the server.
func (c *Client) Illustrate(ctx context.Context, accountID string, prompt domain.ImagePrompt) (*IllustrateReply, error) {
	reply := new(IllustrateReply)
	if err := c.invoke(ctx, "Illustrate", &IllustrateRequest{AccountID: accountID, Prompt: prompt}, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// Credit grants credits using the client's admin token.
func (c *Client) Credit(ctx context.Context, accountID string, amount int64, reference string) (*BalanceReply, error) {
	if c.adminToken != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.adminToken)
	}
	reply := new(BalanceReply)
	req := &CreditRequest{AccountID: accountID, Amount: amount, Reference: reference}
	if err := c.invoke(ctx, "Credit", req, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// Watch streams transitions of accountID to fn until ctx is cancelled, the
// server ends the stream, or fn returns false.
func (c *Client) Watch(ctx context.Context, accountID string, fn func(workflow.Transition) bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := c.conn.NewStream(ctx, &studioServiceDesc.Streams[0], "/"+serviceName+"/Watch")
	if err != nil {
		return err
	}
	if err := stream.SendMsg(&AccountRequest{AccountID: accountID}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	for {
		var tr workflow.Transition
		if err := stream.RecvMsg(&tr); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if !fn(tr) {
			return nil
		}
	}
}
