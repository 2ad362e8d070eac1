// Package http implements the REST and WebSocket transport of the studio.
//
// Every account-scoped route lives under /v1/accounts/{account}. Generation
// requests block until the workflow reaches a terminal state; clients that
// want progress subscribe to /v1/accounts/{account}/events over WebSocket.
package http

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/anigen/anigen/internal/workflow"
)

// Options configures optional routes.
type Options struct {
	// AdminToken guards POST /v1/accounts/{account}/credits. Empty disables it.
	AdminToken string

	// Swagger serves the OpenAPI UI under /swagger/.
	Swagger bool

	// Webhook, when set, is mounted at /billing/stripe/webhook.
	Webhook http.Handler
}

// Transport implements transport.Transport over HTTP and WebSocket.
type Transport struct {
	port   int
	studio *workflow.Manager
	opts   Options
	server *http.Server
}

// New creates a new HTTP transport on the given port.
func New(port int, studio *workflow.Manager, opts Options) *Transport {
	return &Transport{port: port, studio: studio, opts: opts}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Handler returns the chi router with all routes mounted.
func (t *Transport) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/v1/options", t.handleOptions)

	r.Route("/v1/accounts/{account}", func(r chi.Router) {
		r.Get("/credits", t.handleCredits)
		r.Get("/ledger", t.handleLedger)
		if t.opts.AdminToken != "" {
			r.With(t.requireAdmin).Post("/credits", t.handleGrant)
		}

		r.Post("/music", t.handleGenerate)
		r.Get("/music/current", t.handleCurrent)
		r.Get("/music/current.wav", t.handleExport)
		r.Post("/music/play", t.handlePlay)
		r.Post("/music/stop", t.handleStop)

		r.Post("/images", t.handleImage)

		r.Get("/themes", t.handleThemes)
		r.Post("/themes", t.handleSaveTheme)
		r.Delete("/themes/{id}", t.handleDeleteTheme)

		r.Get("/events", t.handleEvents)
	})

	if t.opts.Webhook != nil {
		r.Handle("/billing/stripe/webhook", t.opts.Webhook)
	}

	if t.opts.Swagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}
	return r
}

// Listen starts the HTTP server.
func (t *Transport) Listen(ctx context.Context) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port, "swagger", t.opts.Swagger, "webhook", t.opts.Webhook != nil)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}

func (t *Transport) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(t.opts.AdminToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "admin token required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
