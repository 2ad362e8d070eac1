// Package pcm converts provider audio payloads into raw 16-bit PCM and
// normalized floating-point samples.
//
// Speech providers hand back mono, 16-bit, little-endian linear PCM wrapped
// in base64 for transport. Decoding always works on an explicit View of the
// backing buffer so that a PCM region embedded in a larger allocation is
// never misread.
package pcm

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/anigen/anigen/internal/domain"
)

var (
	// ErrDecode is returned when a transport payload is not valid base64.
	ErrDecode = fmt.Errorf("%w: payload is not valid base64", domain.ErrInvalidInput)

	// ErrMalformedAudio is returned when a PCM region does not hold a whole
	// number of 16-bit frames.
	ErrMalformedAudio = fmt.Errorf("%w: malformed pcm audio", domain.ErrInvalidInput)
)

// BytesPerSample is fixed by the 16-bit format.
const BytesPerSample = 2

// DecodeTransport decodes a base64 transport payload to raw bytes.
// Padded and unpadded standard encodings are accepted; surrounding
// whitespace is ignored. An empty payload decodes to an empty slice.
func DecodeTransport(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return []byte{}, nil
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err == nil {
		return raw, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(payload); rawErr == nil {
		return raw, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrDecode, err)
}

// EncodeTransport is the inverse of DecodeTransport. Providers whose SDKs
// already hand back raw bytes use it so the workflow always receives the
// same transport form.
func EncodeTransport(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

// View is a (buffer, offset, length) window onto PCM bytes.
type View struct {
	Buf    []byte
	Offset int
	Length int
}

// WholeView covers all of buf.
func WholeView(buf []byte) View {
	return View{Buf: buf, Length: len(buf)}
}

// Bytes returns the viewed region without copying.
func (v View) Bytes() ([]byte, error) {
	if v.Offset < 0 || v.Length < 0 || v.Offset > len(v.Buf) || v.Length > len(v.Buf)-v.Offset {
		return nil, fmt.Errorf("%w: view [%d:+%d] outside buffer of %d bytes", ErrMalformedAudio, v.Offset, v.Length, len(v.Buf))
	}
	return v.Buf[v.Offset : v.Offset+v.Length], nil
}

// ToNormalizedSamples interprets the viewed bytes as interleaved
// little-endian int16 samples and returns one slice per channel with values
// in [-1.0, 1.0).
func ToNormalizedSamples(v View, channels int) ([][]float32, error) {
	if channels < 1 {
		return nil, fmt.Errorf("%w: channel count %d", ErrMalformedAudio, channels)
	}
	region, err := v.Bytes()
	if err != nil {
		return nil, err
	}
	frameBytes := BytesPerSample * channels
	if len(region)%frameBytes != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrMalformedAudio, len(region), frameBytes)
	}

	sampleCount := len(region) / BytesPerSample
	frameCount := sampleCount / channels
	out := make([][]float32, channels)
	for c := range out {
		out[c] = make([]float32, frameCount)
	}
	for i := 0; i < frameCount; i++ {
		for c := 0; c < channels; c++ {
			at := (i*channels + c) * BytesPerSample
			s := int16(binary.LittleEndian.Uint16(region[at : at+BytesPerSample]))
			out[c][i] = float32(s) / 32768.0
		}
	}
	return out, nil
}

// Quantize converts per-channel normalized samples back to interleaved
// little-endian int16 bytes. Channels shorter than the first are padded
// with silence.
func Quantize(samples [][]float32) []byte {
	if len(samples) == 0 {
		return []byte{}
	}
	channels := len(samples)
	frames := len(samples[0])
	out := make([]byte, frames*channels*BytesPerSample)
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			var v float32
			if i < len(samples[c]) {
				v = samples[c][i]
			}
			at := (i*channels + c) * BytesPerSample
			binary.LittleEndian.PutUint16(out[at:], uint16(quantizeSample(v)))
		}
	}
	return out
}

func quantizeSample(v float32) int16 {
	q := math.Round(float64(v) * 32768.0)
	switch {
	case q > math.MaxInt16:
		return math.MaxInt16
	case q < math.MinInt16:
		return math.MinInt16
	default:
		return int16(q)
	}
}

// Asset is a decoded audio payload owned by the generation workflow and
// shared read-only with playback and export.
type Asset struct {
	PCM        []byte
	SampleRate int
	Channels   int
	BitDepth   int
}

// NewAsset wraps raw mono 16-bit PCM at sampleRate.
func NewAsset(raw []byte, sampleRate int) (*Asset, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", domain.ErrInvalidInput, sampleRate)
	}
	if len(raw)%BytesPerSample != 0 {
		return nil, fmt.Errorf("%w: odd byte length %d", ErrMalformedAudio, len(raw))
	}
	return &Asset{
		PCM:        raw,
		SampleRate: sampleRate,
		Channels:   domain.Channels,
		BitDepth:   domain.BitDepth,
	}, nil
}

// Frames is the number of sample frames in the asset.
func (a *Asset) Frames() int {
	if a == nil || a.Channels == 0 {
		return 0
	}
	return len(a.PCM) / (BytesPerSample * a.Channels)
}

// Duration is the playing time of the asset.
func (a *Asset) Duration() time.Duration {
	if a == nil || a.SampleRate == 0 {
		return 0
	}
	return time.Duration(a.Frames()) * time.Second / time.Duration(a.SampleRate)
}

// Samples returns the asset as normalized per-channel samples.
func (a *Asset) Samples() ([][]float32, error) {
	return ToNormalizedSamples(WholeView(a.PCM), a.Channels)
}
