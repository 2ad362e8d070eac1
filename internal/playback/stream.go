package playback

import (
	"fmt"

	"github.com/gopxl/beep/v2"
)

// Stream plays normalized per-channel samples. Mono input is duplicated to
// both output channels. It implements beep.StreamSeeker.
type Stream struct {
	samples  [][]float32
	position int
}

// NewStream builds a playable buffer from per-channel samples. All channels
// must have the same length.
func NewStream(samples [][]float32) (*Stream, error) {
	if len(samples) == 0 || len(samples) > 2 {
		return nil, fmt.Errorf("unsupported channel count %d", len(samples))
	}
	for c := 1; c < len(samples); c++ {
		if len(samples[c]) != len(samples[0]) {
			return nil, fmt.Errorf("channel %d has %d frames, want %d", c, len(samples[c]), len(samples[0]))
		}
	}
	return &Stream{samples: samples}, nil
}

func (s *Stream) Stream(out [][2]float64) (n int, ok bool) {
	left := s.samples[0]
	right := left
	if len(s.samples) == 2 {
		right = s.samples[1]
	}
	if s.position >= len(left) {
		return 0, false
	}
	for n < len(out) && s.position < len(left) {
		out[n][0] = float64(left[s.position])
		out[n][1] = float64(right[s.position])
		s.position++
		n++
	}
	return n, true
}

func (s *Stream) Err() error { return nil }

func (s *Stream) Len() int { return len(s.samples[0]) }

func (s *Stream) Position() int { return s.position }

func (s *Stream) Seek(p int) error {
	if p < 0 || p > s.Len() {
		return fmt.Errorf("seek position %d out of range [0, %d]", p, s.Len())
	}
	s.position = p
	return nil
}

var _ beep.StreamSeeker = (*Stream)(nil)
