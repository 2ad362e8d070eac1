package domain

import "errors"

// Error categories. Component packages wrap these with %w so callers can
// classify any failure with errors.Is.
var (
	// ErrInvalidInput covers malformed base64, odd PCM lengths, non-positive
	// amounts and out-of-range generation parameters. Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientCredits is a normal business outcome. The workflow
	// surfaces it as the Rejected state, not as a returned error.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrRemoteGeneration wraps any failure of an external generation service.
	ErrRemoteGeneration = errors.New("remote generation failed")

	// ErrPlayback wraps audio output session failures.
	ErrPlayback = errors.New("playback failed")

	// ErrBusy is returned when a generation is already in flight for the session.
	ErrBusy = errors.New("a generation request is already in flight")

	// ErrAccountNotFound is returned by ledger stores for unknown accounts.
	ErrAccountNotFound = errors.New("account not found")

	// ErrThemeNotFound is returned by vault stores for unknown themes.
	ErrThemeNotFound = errors.New("theme not found")

	// ErrNoResult is returned when an export, save or play is requested
	// before a generation has reached the Ready state.
	ErrNoResult = errors.New("no generated result available")

	// ErrNoAudio is returned when the current result carries no audio.
	ErrNoAudio = errors.New("result has no audio")
)
