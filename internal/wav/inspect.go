package wav

import (
	"fmt"
	"io"
	"time"

	gowav "github.com/go-audio/wav"

	"github.com/anigen/anigen/internal/domain"
)

// Info summarises a WAV stream.
type Info struct {
	AudioFormat int
	SampleRate  int
	Channels    int
	BitDepth    int
	Frames      int
	Duration    time.Duration
}

// Inspect reads a WAV stream back and reports its format and length.
func Inspect(r io.ReadSeeker) (Info, error) {
	d := gowav.NewDecoder(r)
	if !d.IsValidFile() {
		if err := d.Err(); err != nil {
			return Info{}, fmt.Errorf("%w: not a wav file: %v", domain.ErrInvalidInput, err)
		}
		return Info{}, fmt.Errorf("%w: not a wav file", domain.ErrInvalidInput)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return Info{}, fmt.Errorf("reading pcm: %w", err)
	}

	info := Info{
		AudioFormat: int(d.WavAudioFormat),
		SampleRate:  int(d.SampleRate),
		Channels:    int(d.NumChans),
		BitDepth:    int(d.BitDepth),
		Frames:      buf.NumFrames(),
	}
	if info.SampleRate > 0 {
		info.Duration = time.Duration(info.Frames) * time.Second / time.Duration(info.SampleRate)
	}
	return info, nil
}
