// Package billing turns completed Stripe checkout sessions into ledger
// credits.
//
// A checkout session is expected to carry the account ID in
// client_reference_id (or metadata["account_id"]) and the number of credits
// bought in metadata["credits"]. The event ID is the journal reference of
// the purchase, and the ledger store credits a reference at most once, so
// Stripe's retries never credit twice, even across restarts or replicas.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/anigen/anigen/internal/domain"
	"github.com/anigen/anigen/internal/ledger"
	"github.com/anigen/anigen/internal/metrics"
)

const maxPayloadBytes = 64 << 10

// Ledgers resolves the ledger of an account.
type Ledgers interface {
	Ledger(ctx context.Context, accountID string) (*ledger.Ledger, error)
}

// Handler receives Stripe webhook deliveries.
type Handler struct {
	secret  string
	ledgers Ledgers
}

// NewHandler creates a webhook handler verifying signatures with secret.
func NewHandler(secret string, ledgers Ledgers) *Handler {
	return &Handler{
		secret:  secret,
		ledgers: ledgers,
	}
}

// ServeHTTP verifies the delivery and applies it.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		http.Error(w, "reading body", http.StatusRequestEntityTooLarge)
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, r.Header.Get("Stripe-Signature"), h.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "bad_signature").Inc()
		slog.Warn("stripe webhook rejected", "error", err)
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	result, err := h.Apply(r.Context(), event)
	metrics.WebhookEvents.WithLabelValues(string(event.Type), result).Inc()
	if err != nil {
		slog.Error("stripe webhook failed", "event_id", event.ID, "type", event.Type, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Apply processes a verified event and returns the result label: credited,
// duplicate, ignored, or error.
func (h *Handler) Apply(ctx context.Context, event stripe.Event) (string, error) {
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		slog.Debug("stripe event ignored", "event_id", event.ID, "type", event.Type)
		return "ignored", nil
	}

	if event.Data == nil {
		return "error", fmt.Errorf("%w: event %s has no data", domain.ErrInvalidInput, event.ID)
	}
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return "error", fmt.Errorf("%w: decoding checkout session: %v", domain.ErrInvalidInput, err)
	}
	if session.PaymentStatus != "" && session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		slog.Info("checkout session not paid", "event_id", event.ID, "session", session.ID, "status", session.PaymentStatus)
		return "ignored", nil
	}

	accountID, credits, err := purchase(&session)
	if err != nil {
		return "error", err
	}
	l, err := h.ledgers.Ledger(ctx, accountID)
	if err != nil {
		return "error", fmt.Errorf("opening ledger: %w", err)
	}

	if err := l.Credit(ctx, credits, event.ID); err != nil {
		if errors.Is(err, ledger.ErrDuplicateReference) {
			slog.Info("stripe event already applied", "event_id", event.ID, "account", accountID)
			return "duplicate", nil
		}
		return "error", fmt.Errorf("crediting account: %w", err)
	}

	metrics.CreditsPurchased.Add(float64(credits))
	slog.Info("credits purchased", "event_id", event.ID, "account", accountID, "credits", credits)
	return "credited", nil
}

func purchase(s *stripe.CheckoutSession) (string, int64, error) {
	accountID := s.ClientReferenceID
	if accountID == "" {
		accountID = s.Metadata["account_id"]
	}
	if accountID == "" {
		return "", 0, fmt.Errorf("%w: checkout session %s has no account reference", domain.ErrInvalidInput, s.ID)
	}
	raw, ok := s.Metadata["credits"]
	if !ok {
		return "", 0, fmt.Errorf("%w: checkout session %s has no credits metadata", domain.ErrInvalidInput, s.ID)
	}
	credits, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || credits <= 0 {
		return "", 0, fmt.Errorf("%w: checkout session %s credits %q", domain.ErrInvalidInput, s.ID, raw)
	}
	return accountID, credits, nil
}
