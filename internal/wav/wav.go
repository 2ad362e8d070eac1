// Package wav serializes PCM audio into RIFF/WAVE containers for export and
// reads exported files back for inspection.
package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"github.com/anigen/anigen/internal/domain"
	"github.com/anigen/anigen/internal/pcm"
)

// MIMEType is the content type of every exported file.
const MIMEType = "audio/wav"

// HeaderSize is the length of the canonical PCM WAV header.
const HeaderSize = 44

// Encode wraps raw PCM in a 44-byte canonical WAV header. The payload is
// copied through untouched. Zero channels or bitsPerSample fall back to
// mono and 16-bit.
func Encode(data []byte, sampleRate, channels, bitsPerSample int) ([]byte, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: pcm payload is absent", domain.ErrInvalidInput)
	}
	if channels == 0 {
		channels = domain.Channels
	}
	if bitsPerSample == 0 {
		bitsPerSample = domain.BitDepth
	}
	if sampleRate <= 0 || channels < 0 || bitsPerSample < 0 || bitsPerSample%8 != 0 {
		return nil, fmt.Errorf("%w: format %d Hz / %d ch / %d bit", domain.ErrInvalidInput, sampleRate, channels, bitsPerSample)
	}

	dataLen := len(data)
	bytesPerSample := bitsPerSample / 8

	buf := &bytes.Buffer{}
	buf.Grow(HeaderSize + dataLen)

	// RIFF header
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	// fmt subchunk
	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate*channels*bytesPerSample))
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels*bytesPerSample))
	_ = binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	// data subchunk
	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(data)

	return buf.Bytes(), nil
}

// EncodeAsset encodes a decoded audio asset with its own format.
func EncodeAsset(a *pcm.Asset) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: no audio asset", domain.ErrInvalidInput)
	}
	return Encode(a.PCM, a.SampleRate, a.Channels, a.BitDepth)
}

// ExportName builds the download name <app>_Synth_<genre>_<epoch-ms>.wav.
func ExportName(app, genre string, at time.Time) string {
	return app + "_Synth_" + genre + "_" + strconv.FormatInt(at.UnixMilli(), 10) + ".wav"
}
