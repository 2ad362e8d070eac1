// Package workflow sequences a generation request: credit check and charge,
// the remote generation call, decoding, and the ready-to-play state.
//
// Every request ends in a terminal Outcome. Generate returns an error only
// when the request is not accepted at all (invalid parameters or another
// request already in flight); rejections and failures are outcome states.
// Credits are consumed on attempt: a failed request is not refunded.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anigen/anigen/internal/domain"
	"github.com/anigen/anigen/internal/ledger"
	"github.com/anigen/anigen/internal/metrics"
	"github.com/anigen/anigen/internal/pcm"
	"github.com/anigen/anigen/internal/provider"
	"github.com/anigen/anigen/internal/vault"
	"github.com/anigen/anigen/internal/wav"
)

// Player is the playback surface a session drives. Each session owns its
// Player, so stopping it never affects another account's audio.
type Player interface {
	PrepareAndPlay(ctx context.Context, samples [][]float32) error
	Stop()
	Wait(ctx context.Context) error
	Close() error
}

// Config wires a session to its collaborators.
type Config struct {
	Describer provider.Describer
	Speech    provider.Speech // optional
	Imager    provider.Imager // optional
	Vault     vault.Store     // optional

	// NewPlayer creates the player of each new session. Nil disables
	// playback.
	NewPlayer func() Player

	AppName    string
	Voice      string
	SampleRate int
	MusicCost  int64
	ImageCost  int64

	Now func() time.Time
}

func (c *Config) setDefaults() {
	if c.AppName == "" {
		c.AppName = "AniGen"
	}
	if c.Voice == "" {
		c.Voice = provider.DefaultVoice
	}
	if c.SampleRate <= 0 {
		c.SampleRate = domain.SampleRate
	}
	if c.MusicCost <= 0 {
		c.MusicCost = domain.GenerationCost
	}
	if c.ImageCost <= 0 {
		c.ImageCost = domain.GenerationCost
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Session is one account's studio: at most one music request and one image
// request in flight, plus the current result.
type Session struct {
	accountID string
	ledger    *ledger.Ledger
	cfg       Config
	player    Player

	mu          sync.Mutex
	state       State
	musicBusy   bool
	imageBusy   bool
	current     *Outcome
	lastImage   *ImageOutcome
	subscribers map[chan Transition]struct{}
}

// NewSession creates an idle session charging l.
func NewSession(l *ledger.Ledger, cfg Config) *Session {
	cfg.setDefaults()
	s := &Session{
		accountID:   l.AccountID(),
		ledger:      l,
		cfg:         cfg,
		state:       StateIdle,
		subscribers: make(map[chan Transition]struct{}),
	}
	if cfg.NewPlayer != nil {
		s.player = cfg.NewPlayer()
	}
	return s
}

// AccountID returns the account the session charges.
func (s *Session) AccountID() string { return s.accountID }

// Ledger returns the session's credit ledger.
func (s *Session) Ledger() *ledger.Ledger { return s.ledger }

// State returns the music state machine's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the outcome of the latest music request, if any.
func (s *Session) Current() (*Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.current != nil
}

// LastImage returns the outcome of the latest image request, if any.
func (s *Session) LastImage() (*ImageOutcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastImage, s.lastImage != nil
}

// Generate runs one music request to a terminal state.
func (s *Session) Generate(ctx context.Context, params domain.Params) (*Outcome, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.musicBusy {
		s.mu.Unlock()
		return nil, domain.ErrBusy
	}
	s.musicBusy = true
	// Audio of the previous request never survives into this one.
	s.current = nil
	s.mu.Unlock()

	if s.player != nil {
		s.player.Stop()
	}

	out := &Outcome{
		RequestID: uuid.New(),
		Params:    params,
		StartedAt: s.cfg.Now(),
	}
	logger := slog.With("account", s.accountID, "request_id", out.RequestID, "kind", KindMusic)
	logger.Info("generation started", "genre", params.Genre, "mood", params.Mood, "tempo", params.Tempo, "duration_minutes", params.DurationMinutes)

	s.move(out.RequestID, KindMusic, StateIdle, nil)
	s.run(ctx, logger, out)

	out.FinishedAt = s.cfg.Now()
	metrics.Generations.WithLabelValues(string(KindMusic), string(out.State)).Inc()
	metrics.GenerationDuration.WithLabelValues(string(KindMusic)).Observe(out.FinishedAt.Sub(out.StartedAt).Seconds())

	s.mu.Lock()
	s.current = out
	s.musicBusy = false
	s.mu.Unlock()

	logger.Info("generation finished", "state", out.State, "charged", out.Charged, "has_audio", out.HasAudio(), "duration", out.FinishedAt.Sub(out.StartedAt))
	return out, nil
}

func (s *Session) run(ctx context.Context, logger *slog.Logger, out *Outcome) {
	// Charging
	s.move(out.RequestID, KindMusic, StateCharging, nil)
	ok, err := s.ledger.TryChargeFor(ctx, s.cfg.MusicCost, out.RequestID.String(), "music generation")
	if err != nil {
		metrics.CreditCharges.WithLabelValues("error").Inc()
		s.fail(logger, out, fmt.Errorf("charging credits: %w", err))
		return
	}
	if !ok {
		metrics.CreditCharges.WithLabelValues("rejected").Inc()
		out.State = StateRejected
		out.Err = domain.ErrInsufficientCredits
		s.move(out.RequestID, KindMusic, StateRejected, out.Err)
		logger.Info("generation rejected", "cost", s.cfg.MusicCost)
		return
	}
	metrics.CreditCharges.WithLabelValues("accepted").Inc()
	metrics.CreditsSpent.Add(float64(s.cfg.MusicCost))
	out.Charged = s.cfg.MusicCost

	// Requesting
	s.move(out.RequestID, KindMusic, StateRequesting, nil)
	text, err := s.cfg.Describer.Describe(ctx, out.Params)
	if err != nil {
		metrics.ProviderErrors.WithLabelValues("describe").Inc()
		s.fail(logger, out, err)
		return
	}
	if text == "" {
		text = provider.FallbackDescription
	}
	out.Description = text
	logger.Debug("description received", "backend", s.cfg.Describer.Name(), "text_length", len(text))

	if s.cfg.Speech == nil {
		s.ready(out)
		return
	}
	payload, hasAudio, err := s.cfg.Speech.Synthesize(ctx, provider.Truncate(text, provider.MaxSpeechRunes), s.cfg.Voice)
	if err != nil {
		metrics.ProviderErrors.WithLabelValues("speech").Inc()
		s.fail(logger, out, err)
		return
	}
	if !hasAudio {
		logger.Warn("speech backend returned no audio", "backend", s.cfg.Speech.Name())
		s.ready(out)
		return
	}

	// Decoding
	s.move(out.RequestID, KindMusic, StateDecoding, nil)
	raw, err := pcm.DecodeTransport(payload)
	if err != nil {
		s.fail(logger, out, fmt.Errorf("decoding audio: %w", err))
		return
	}
	if len(raw) == 0 {
		logger.Warn("speech backend returned empty audio", "backend", s.cfg.Speech.Name())
		s.ready(out)
		return
	}
	asset, err := pcm.NewAsset(raw, s.cfg.SampleRate)
	if err != nil {
		s.fail(logger, out, fmt.Errorf("decoding audio: %w", err))
		return
	}
	out.Audio = asset
	logger.Debug("audio decoded", "pcm_bytes", len(raw), "audio_duration", asset.Duration())
	s.ready(out)
}

func (s *Session) ready(out *Outcome) {
	out.State = StateReady
	s.move(out.RequestID, KindMusic, StateReady, nil)
}

func (s *Session) fail(logger *slog.Logger, out *Outcome, err error) {
	out.State = StateFailed
	out.Err = err
	out.Audio = nil
	s.move(out.RequestID, KindMusic, StateFailed, err)
	logger.Error("generation failed", "error", err, "charged", out.Charged)
}

// GenerateImage runs one image request through the same charge contract.
func (s *Session) GenerateImage(ctx context.Context, prompt domain.ImagePrompt) (*ImageOutcome, error) {
	if err := prompt.Validate(); err != nil {
		return nil, err
	}
	if s.cfg.Imager == nil {
		return nil, fmt.Errorf("%w: image generation is not configured", domain.ErrRemoteGeneration)
	}

	s.mu.Lock()
	if s.imageBusy {
		s.mu.Unlock()
		return nil, domain.ErrBusy
	}
	s.imageBusy = true
	s.lastImage = nil
	s.mu.Unlock()

	out := &ImageOutcome{
		RequestID: uuid.New(),
		Prompt:    prompt,
		StartedAt: s.cfg.Now(),
	}
	logger := slog.With("account", s.accountID, "request_id", out.RequestID, "kind", KindImage)
	logger.Info("image generation started")

	s.runImage(ctx, logger, out)

	out.FinishedAt = s.cfg.Now()
	metrics.Generations.WithLabelValues(string(KindImage), string(out.State)).Inc()
	metrics.GenerationDuration.WithLabelValues(string(KindImage)).Observe(out.FinishedAt.Sub(out.StartedAt).Seconds())

	s.mu.Lock()
	s.lastImage = out
	s.imageBusy = false
	s.mu.Unlock()

	logger.Info("image generation finished", "state", out.State, "charged", out.Charged, "bytes", len(out.Image))
	return out, nil
}

func (s *Session) runImage(ctx context.Context, logger *slog.Logger, out *ImageOutcome) {
	s.publish(out.RequestID, KindImage, StateIdle, StateCharging, nil)
	ok, err := s.ledger.TryChargeFor(ctx, s.cfg.ImageCost, out.RequestID.String(), "image generation")
	if err != nil {
		metrics.CreditCharges.WithLabelValues("error").Inc()
		s.failImage(logger, out, StateCharging, fmt.Errorf("charging credits: %w", err))
		return
	}
	if !ok {
		metrics.CreditCharges.WithLabelValues("rejected").Inc()
		out.State = StateRejected
		out.Err = domain.ErrInsufficientCredits
		s.publish(out.RequestID, KindImage, StateCharging, StateRejected, out.Err)
		return
	}
	metrics.CreditCharges.WithLabelValues("accepted").Inc()
	metrics.CreditsSpent.Add(float64(s.cfg.ImageCost))
	out.Charged = s.cfg.ImageCost

	s.publish(out.RequestID, KindImage, StateCharging, StateRequesting, nil)
	img, err := s.cfg.Imager.GenerateImage(ctx, out.Prompt)
	if err != nil {
		metrics.ProviderErrors.WithLabelValues("image").Inc()
		s.failImage(logger, out, StateRequesting, err)
		return
	}
	out.Image = img
	out.State = StateReady
	s.publish(out.RequestID, KindImage, StateRequesting, StateReady, nil)
}

func (s *Session) failImage(logger *slog.Logger, out *ImageOutcome, from State, err error) {
	out.State = StateFailed
	out.Err = err
	s.publish(out.RequestID, KindImage, from, StateFailed, err)
	logger.Error("image generation failed", "error", err, "charged", out.Charged)
}

// ErrPlaybackDisabled is returned by Play when no output is configured.
var ErrPlaybackDisabled = fmt.Errorf("%w: playback is not enabled", domain.ErrPlayback)

// Play starts playback of the current result's audio.
func (s *Session) Play(ctx context.Context) error {
	out, err := s.readyAudio()
	if err != nil {
		return err
	}
	if s.player == nil {
		return ErrPlaybackDisabled
	}
	samples, err := out.Audio.Samples()
	if err != nil {
		return err
	}
	return s.player.PrepareAndPlay(ctx, samples)
}

// Stop stops this session's playback. It is always safe to call.
func (s *Session) Stop() {
	if s.player != nil {
		s.player.Stop()
	}
}

// Wait blocks until this session's playback ends or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	if s.player == nil {
		return nil
	}
	return s.player.Wait(ctx)
}

func (s *Session) close() error {
	if s.player == nil {
		return nil
	}
	return s.player.Close()
}

// Export encodes the current result as a WAV file and returns its download
// name and bytes.
func (s *Session) Export() (string, []byte, error) {
	out, err := s.readyAudio()
	if err != nil {
		return "", nil, err
	}
	data, err := wav.EncodeAsset(out.Audio)
	if err != nil {
		return "", nil, err
	}
	return wav.ExportName(s.cfg.AppName, string(out.Params.Genre), s.cfg.Now()), data, nil
}

// Theme builds the MusicTheme record of the current result.
func (s *Session) Theme() (domain.MusicTheme, error) {
	s.mu.Lock()
	out := s.current
	s.mu.Unlock()
	if out == nil || out.State != StateReady {
		return domain.MusicTheme{}, domain.ErrNoResult
	}
	return domain.MusicTheme{
		ID:              uuid.NewString(),
		AccountID:       s.accountID,
		Description:     out.Description,
		Genre:           out.Params.Genre,
		Mood:            out.Params.Mood,
		Tempo:           out.Params.Tempo,
		DurationMinutes: out.Params.DurationMinutes,
		Timestamp:       s.cfg.Now(),
	}, nil
}

// SaveTheme hands the current result to the vault.
func (s *Session) SaveTheme(ctx context.Context) (domain.MusicTheme, error) {
	if s.cfg.Vault == nil {
		return domain.MusicTheme{}, errors.New("no vault configured")
	}
	theme, err := s.Theme()
	if err != nil {
		return domain.MusicTheme{}, err
	}
	if err := s.cfg.Vault.SaveTheme(ctx, theme); err != nil {
		return domain.MusicTheme{}, fmt.Errorf("saving theme: %w", err)
	}
	slog.Info("theme saved", "account", s.accountID, "theme_id", theme.ID, "genre", theme.Genre)
	return theme, nil
}

func (s *Session) readyAudio() (*Outcome, error) {
	s.mu.Lock()
	out := s.current
	s.mu.Unlock()
	if out == nil || out.State != StateReady {
		return nil, domain.ErrNoResult
	}
	if !out.HasAudio() {
		return nil, domain.ErrNoAudio
	}
	return out, nil
}
