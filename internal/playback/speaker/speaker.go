// Package speaker plays streams on the system audio device through the beep
// speaker. The device is opened once per process at a fixed sample rate.
package speaker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/anigen/anigen/internal/playback"
)

// Output implements playback.Output on the system speaker.
type Output struct {
	rate   beep.SampleRate
	buffer time.Duration

	initOnce sync.Once
	initErr  error
	opened   atomic.Bool
}

// New returns an Output that opens the device at sampleRate on first use.
// buffer sets the device latency; zero means 100ms.
func New(sampleRate int, buffer time.Duration) *Output {
	if buffer <= 0 {
		buffer = 100 * time.Millisecond
	}
	return &Output{rate: beep.SampleRate(sampleRate), buffer: buffer}
}

// Resume opens the device if needed and wakes it from suspension.
func (o *Output) Resume(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.initOnce.Do(func() {
		o.initErr = speaker.Init(o.rate, o.rate.N(o.buffer))
		if o.initErr == nil {
			o.opened.Store(true)
			slog.Info("audio device opened", "sample_rate", int(o.rate), "buffer", o.buffer)
		}
	})
	if o.initErr != nil {
		return fmt.Errorf("opening audio device: %w", o.initErr)
	}
	return speaker.Resume()
}

// Start plays stream, resampling when its rate differs from the device.
func (o *Output) Start(stream beep.Streamer, format beep.Format, done func()) (playback.Handle, error) {
	if o.initErr != nil {
		return nil, o.initErr
	}
	if format.SampleRate != o.rate {
		stream = beep.Resample(4, format.SampleRate, o.rate, stream)
	}

	h := &handle{}
	h.ctrl = &beep.Ctrl{Streamer: beep.Seq(stream, beep.Callback(done))}
	speaker.Play(h.ctrl)
	return h, nil
}

// Suspend releases the device until the next Resume. It is a no-op when
// the device was never opened.
func (o *Output) Suspend() error {
	if !o.opened.Load() {
		return nil
	}
	return speaker.Suspend()
}

type handle struct {
	ctrl *beep.Ctrl
}

// Stop detaches the stream so the mixer drops it without firing the
// completion callback.
func (h *handle) Stop() error {
	speaker.Lock()
	h.ctrl.Streamer = nil
	speaker.Unlock()
	return nil
}
