package workflow

import (
	"time"

	"github.com/google/uuid"

	"github.com/anigen/anigen/internal/domain"
	"github.com/anigen/anigen/internal/pcm"
)

// State is a step of the per-request state machine.
type State string

const (
	StateIdle       State = "idle"
	StateCharging   State = "charging"
	StateRequesting State = "requesting"
	StateDecoding   State = "decoding"
	StateReady      State = "ready"
	StateRejected   State = "rejected"
	StateFailed     State = "failed"
)

// Terminal reports whether s ends a request. Terminal states persist until
// the next trigger resets the session to Idle.
func (s State) Terminal() bool {
	return s == StateReady || s == StateRejected || s == StateFailed
}

// Kind distinguishes the two generation flows sharing a session.
type Kind string

const (
	KindMusic Kind = "music"
	KindImage Kind = "image"
)

// Transition is published to subscribers on every state change.
type Transition struct {
	RequestID uuid.UUID `json:"request_id"`
	AccountID string    `json:"account_id"`
	Kind      Kind      `json:"kind"`
	From      State     `json:"from"`
	To        State     `json:"to"`
	At        time.Time `json:"at"`
	Error     string    `json:"error,omitempty"`
}

// Outcome is the terminal result of a music generation request.
type Outcome struct {
	RequestID   uuid.UUID
	State       State
	Params      domain.Params
	Description string
	Audio       *pcm.Asset // nil when no audio was produced
	Err         error      // set for Rejected and Failed
	Charged     int64
	StartedAt   time.Time
	FinishedAt  time.Time
}

// HasAudio reports whether a playable asset is attached.
func (o *Outcome) HasAudio() bool {
	return o != nil && o.Audio != nil && len(o.Audio.PCM) > 0
}

// ImageOutcome is the terminal result of an image generation request.
type ImageOutcome struct {
	RequestID  uuid.UUID
	State      State
	Prompt     domain.ImagePrompt
	Image      []byte
	Err        error
	Charged    int64
	StartedAt  time.Time
	FinishedAt time.Time
}
