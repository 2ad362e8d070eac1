// Package metrics declares the Prometheus instruments of the service. They
// register with the default registry and are served by the HTTP transport.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "anigen"

// ─── Ledger ─────────────────────────────────────────────────────────────────

// CreditCharges counts charge attempts by result (accepted, rejected, error).
var CreditCharges = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "charges_total",
	Help:      "Credit charge attempts by result.",
}, []string{"result"})

// CreditsSpent counts credits debited by accepted charges.
var CreditsSpent = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "credits_spent_total",
	Help:      "Credits debited by accepted charges.",
})

// CreditsPurchased counts credits added by the payment collaborator.
var CreditsPurchased = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "credits_purchased_total",
	Help:      "Credits added through purchases.",
})

// ─── Generation ─────────────────────────────────────────────────────────────

// Generations counts finished generation requests by kind and terminal state.
var Generations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "generation",
	Name:      "requests_total",
	Help:      "Finished generation requests by kind and terminal state.",
}, []string{"kind", "state"})

// GenerationDuration observes the wall time of generation requests.
var GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "generation",
	Name:      "duration_seconds",
	Help:      "Generation request latency.",
	Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
}, []string{"kind"})

// ProviderErrors counts collaborator failures by provider and call.
var ProviderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "provider",
	Name:      "errors_total",
	Help:      "Generation collaborator failures.",
}, []string{"call"})

// ─── Playback ───────────────────────────────────────────────────────────────

// PlaybackSessions counts finished playback sessions by how they ended.
var PlaybackSessions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "playback",
	Name:      "sessions_total",
	Help:      "Playback sessions by outcome (completed, stopped, replaced, closed, failed).",
}, []string{"result"})

// PlaybackActive is 1 while a session is playing.
var PlaybackActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "playback",
	Name:      "active",
	Help:      "Whether a playback session is active.",
})

// ─── Billing ────────────────────────────────────────────────────────────────

// WebhookEvents counts payment webhook deliveries by event type and result.
var WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "billing",
	Name:      "webhook_events_total",
	Help:      "Payment webhook deliveries by type and result.",
}, []string{"type", "result"})
