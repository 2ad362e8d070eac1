// Package transport defines the contract for the studio's network surfaces.
//
// Each transport (HTTP/WebSocket, gRPC) wraps the same workflow.Manager and
// maps its outcomes onto its own protocol. The daemon starts every enabled
// transport and closes them on shutdown.
package transport

import (
	"context"
	"errors"

	"github.com/anigen/anigen/internal/domain"
	"github.com/anigen/anigen/internal/workflow"
)

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http").
	Name() string

	// Listen starts serving. It blocks until the context is cancelled.
	Listen(ctx context.Context) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}

// Code classifies an error for protocol status mapping.
type Code int

const (
	CodeInternal Code = iota
	CodeInvalid
	CodeInsufficientCredits
	CodeBusy
	CodeNotFound
	CodeRemote
	CodeUnavailable
)

// Classify maps a studio error onto a Code.
func Classify(err error) Code {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return CodeInvalid
	case errors.Is(err, domain.ErrInsufficientCredits):
		return CodeInsufficientCredits
	case errors.Is(err, domain.ErrBusy):
		return CodeBusy
	case errors.Is(err, domain.ErrNoResult), errors.Is(err, domain.ErrNoAudio),
		errors.Is(err, domain.ErrThemeNotFound), errors.Is(err, domain.ErrAccountNotFound):
		return CodeNotFound
	case errors.Is(err, domain.ErrRemoteGeneration):
		return CodeRemote
	case errors.Is(err, domain.ErrPlayback):
		return CodeUnavailable
	default:
		return CodeInternal
	}
}

// OutcomeError returns the error a terminal outcome should surface, or nil
// for Ready.
func OutcomeError(state workflow.State, err error) error {
	switch state {
	case workflow.StateReady:
		return nil
	case workflow.StateRejected:
		if err == nil {
			return domain.ErrInsufficientCredits
		}
	}
	if err == nil {
		return errors.New("request did not complete")
	}
	return err
}

// Options is the catalog of accepted generation parameters.
type Options struct {
	Genres             []domain.Genre `json:"genres"`
	Moods              []domain.Mood  `json:"moods"`
	Tempos             []domain.Tempo `json:"tempos"`
	MinDurationMinutes float64        `json:"min_duration_minutes"`
	MaxDurationMinutes float64        `json:"max_duration_minutes"`
	DurationStep       float64        `json:"duration_step_minutes"`
	Defaults           domain.Params  `json:"defaults"`
	MusicCost          int64          `json:"music_cost"`
	ImageCost          int64          `json:"image_cost"`
}

// Catalog builds the options served to clients.
func Catalog(m *workflow.Manager) Options {
	return Options{
		Genres:             domain.Genres,
		Moods:              domain.Moods,
		Tempos:             domain.Tempos,
		MinDurationMinutes: domain.MinDurationMinutes,
		MaxDurationMinutes: domain.MaxDurationMinutes,
		DurationStep:       domain.DurationStepMinutes,
		Defaults:           domain.DefaultParams(),
		MusicCost:          m.MusicCost(),
		ImageCost:          m.ImageCost(),
	}
}
