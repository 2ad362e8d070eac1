// Package playback owns the audio output session and the start/stop
// lifecycle of playing a decoded asset.
//
// The controller moves Idle → Preparing → Playing → Idle. Stop is always
// safe, natural completion is delivered by the output as a callback, and a
// completion from a session that was already stopped or replaced is ignored.
package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gopxl/beep/v2"

	"github.com/anigen/anigen/internal/domain"
	"github.com/anigen/anigen/internal/metrics"
)

// State of the controller.
type State int

const (
	StateIdle State = iota
	StatePreparing
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StatePlaying:
		return "playing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrClosed is returned by PrepareAndPlay after Close.
var ErrClosed = fmt.Errorf("%w: controller closed", domain.ErrPlayback)

// Handle is a running playback session.
type Handle interface {
	Stop() error
}

// Output is an audio output device session.
type Output interface {
	// Resume wakes a suspended output. It must succeed before Start.
	Resume(ctx context.Context) error

	// Start begins playing stream at format and calls done once when the
	// stream is exhausted. done is not called after Handle.Stop.
	Start(stream beep.Streamer, format beep.Format, done func()) (Handle, error)
}

type session struct {
	gen      uint64
	handle   Handle
	finished chan struct{} // closed by the output callback
	ended    chan struct{} // closed when the session leaves Playing
	endOnce  sync.Once
}

func (s *session) end() {
	s.endOnce.Do(func() { close(s.ended) })
}

// Controller plays one asset at a time on an Output.
type Controller struct {
	out    Output
	format beep.Format

	mu      sync.Mutex
	state   State
	gen     uint64
	current *session
	closed  bool
}

// NewController returns an idle controller playing at sampleRate with
// channels source channels.
func NewController(out Output, sampleRate, channels int) *Controller {
	return &Controller{
		out: out,
		format: beep.Format{
			SampleRate:  beep.SampleRate(sampleRate),
			NumChannels: channels,
			Precision:   2,
		},
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PrepareAndPlay stops any active session, resumes the output and starts
// playing samples.
func (c *Controller) PrepareAndPlay(ctx context.Context, samples [][]float32) error {
	if len(samples) != c.format.NumChannels {
		return fmt.Errorf("%w: got %d channels, want %d", domain.ErrInvalidInput, len(samples), c.format.NumChannels)
	}
	stream, err := NewStream(samples)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.stopLocked("replaced")
	c.gen++
	gen := c.gen
	c.state = StatePreparing
	c.mu.Unlock()

	if err := c.out.Resume(ctx); err != nil {
		c.abort(gen)
		return fmt.Errorf("%w: resuming output: %v", domain.ErrPlayback, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Stop or Close ran while the output was resuming.
	if c.gen != gen || c.closed {
		return nil
	}

	s := &session{
		gen:      gen,
		finished: make(chan struct{}),
		ended:    make(chan struct{}),
	}
	var once sync.Once
	handle, err := c.out.Start(stream, c.format, func() {
		once.Do(func() { close(s.finished) })
	})
	if err != nil {
		c.state = StateIdle
		metrics.PlaybackSessions.WithLabelValues("failed").Inc()
		return fmt.Errorf("%w: starting stream: %v", domain.ErrPlayback, err)
	}

	s.handle = handle
	c.current = s
	c.state = StatePlaying
	metrics.PlaybackActive.Set(1)
	slog.Debug("playback started", "session", gen, "frames", stream.Len(), "duration", c.format.SampleRate.D(stream.Len()))

	go c.watch(s)
	return nil
}

// watch consumes the session's completion notification exactly once.
func (c *Controller) watch(s *session) {
	select {
	case <-s.finished:
	case <-s.ended:
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != s || c.gen != s.gen {
		slog.Debug("stale playback completion ignored", "session", s.gen)
		return
	}
	c.current = nil
	c.state = StateIdle
	s.end()
	metrics.PlaybackActive.Set(0)
	metrics.PlaybackSessions.WithLabelValues("completed").Inc()
	slog.Debug("playback completed", "session", s.gen)
}

func (c *Controller) abort(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.state = StateIdle
	}
	metrics.PlaybackSessions.WithLabelValues("failed").Inc()
}

// Stop terminates the active session. It is a no-op when idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked("stopped")
}

func (c *Controller) stopLocked(reason string) {
	if c.state == StatePreparing {
		// Invalidate the pending start.
		c.gen++
	}
	c.state = StateIdle

	s := c.current
	if s == nil {
		return
	}
	c.current = nil
	if err := s.handle.Stop(); err != nil {
		slog.Warn("stopping playback session", "session", s.gen, "error", err)
	}
	s.end()
	metrics.PlaybackActive.Set(0)
	metrics.PlaybackSessions.WithLabelValues(reason).Inc()
	slog.Debug("playback stopped", "session", s.gen, "reason", reason)
}

// Wait blocks until the current session ends or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	s := c.current
	c.mu.Unlock()
	if s == nil {
		return nil
	}
	select {
	case <-s.ended:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops playback and refuses further sessions.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked("closed")
	c.closed = true
	return nil
}
