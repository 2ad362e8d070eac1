// Package provider defines the external generation collaborators: the
// atmosphere describer, the speech synthesizer and the image generator.
//
// AniGen ships several backends for each (Gemini, OpenAI, a self-hosted LLM
// and Piper) in sub-packages. Every backend wraps its failures in
// domain.ErrRemoteGeneration so callers can classify them uniformly.
package provider

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/anigen/anigen/internal/domain"
)

const (
	// MaxSpeechRunes is the longest text submitted for speech synthesis.
	MaxSpeechRunes = 1000

	// DefaultVoice is the prebuilt voice used for speech.
	DefaultVoice = "Kore"

	// FallbackDescription replaces an empty atmosphere description.
	FallbackDescription = "A beautiful composition playing in the background of your mind."
)

// Describer produces a short atmosphere description for generation parameters.
type Describer interface {
	// Name returns the backend identifier (e.g., "gemini", "local").
	Name() string

	// Describe returns the description text. An empty string is not an error.
	Describe(ctx context.Context, params domain.Params) (string, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Speech turns text into audio.
type Speech interface {
	// Name returns the backend identifier.
	Name() string

	// Synthesize returns base64-encoded mono 16-bit PCM. ok is false when
	// the backend produced no audio for the text.
	Synthesize(ctx context.Context, text, voice string) (payload string, ok bool, err error)

	// Close releases any resources held by the backend.
	Close() error
}

// Imager renders an illustration.
type Imager interface {
	// Name returns the backend identifier.
	Name() string

	// GenerateImage returns encoded image bytes (PNG for every shipped backend).
	GenerateImage(ctx context.Context, prompt domain.ImagePrompt) ([]byte, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Truncate shortens text to at most max runes.
func Truncate(text string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max])
}

// AtmospherePrompt is the instruction sent to describers.
func AtmospherePrompt(p domain.Params) string {
	return fmt.Sprintf("Describe in 2-3 poetic sentences a musical piece with the following attributes: Genre: %s, Mood: %s, Tempo: %s. "+
		"Focus on the soundscapes, instruments used, and the feeling it evokes. No titles, just the description.",
		p.Genre, p.Mood, p.Tempo)
}

const speechPrefix = "Listen to this theme: "

// SpeechPrompt wraps a description for speech synthesis. The result never
// exceeds MaxSpeechRunes; the description is cut to make room for the prefix.
func SpeechPrompt(text string) string {
	return speechPrefix + Truncate(text, MaxSpeechRunes-utf8.RuneCountInString(speechPrefix))
}

// IllustrationPrompt is the instruction sent to imagers.
func IllustrationPrompt(p domain.ImagePrompt) string {
	var sb strings.Builder
	sb.WriteString("High quality anime style illustration. ")
	sb.WriteString(p.Character)
	sb.WriteString(". Setting: ")
	sb.WriteString(p.Environment)
	sb.WriteString(". Additional details: ")
	sb.WriteString(p.Extra)
	sb.WriteString(". Vivid colors, clean lines, professional digital art.")
	return sb.String()
}

// Remote wraps a backend failure in domain.ErrRemoteGeneration.
func Remote(backend string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrRemoteGeneration, backend, err)
}

// Remotef builds a backend failure in domain.ErrRemoteGeneration.
func Remotef(backend, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", domain.ErrRemoteGeneration, backend, fmt.Sprintf(format, args...))
}
