package wav

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/anigen/anigen/internal/domain"
	"github.com/anigen/anigen/internal/pcm"
)

// Sidecar is the metadata written next to an exported WAV file.
type Sidecar struct {
	App             string    `toml:"app"`
	File            string    `toml:"file"`
	Description     string    `toml:"description"`
	Genre           string    `toml:"genre"`
	Mood            string    `toml:"mood"`
	Tempo           string    `toml:"tempo"`
	DurationMinutes float64   `toml:"duration_minutes"`
	SampleRate      int       `toml:"sample_rate"`
	Channels        int       `toml:"channels"`
	BitDepth        int       `toml:"bit_depth"`
	AudioSeconds    float64   `toml:"audio_seconds"`
	ExportedAt      time.Time `toml:"exported_at"`
}

// Export describes the files produced by WriteExport.
type Export struct {
	Path        string
	SidecarPath string
	Size        int
}

// WriteExport encodes asset into dir under its ExportName. When sidecar is
// set, a TOML file with the theme metadata is written alongside.
func WriteExport(dir, app string, theme domain.MusicTheme, asset *pcm.Asset, at time.Time, sidecar bool) (*Export, error) {
	data, err := EncodeAsset(asset)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export dir: %w", err)
	}

	name := ExportName(app, string(theme.Genre), at)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", name, err)
	}
	out := &Export{Path: path, Size: len(data)}

	if sidecar {
		meta := Sidecar{
			App:             app,
			File:            name,
			Description:     theme.Description,
			Genre:           string(theme.Genre),
			Mood:            string(theme.Mood),
			Tempo:           string(theme.Tempo),
			DurationMinutes: theme.DurationMinutes,
			SampleRate:      asset.SampleRate,
			Channels:        asset.Channels,
			BitDepth:        asset.BitDepth,
			AudioSeconds:    asset.Duration().Seconds(),
			ExportedAt:      at.UTC(),
		}
		out.SidecarPath = strings.TrimSuffix(path, ".wav") + ".toml"
		if err := writeSidecar(out.SidecarPath, meta); err != nil {
			return nil, err
		}
	}

	slog.Info("exported wav", "path", out.Path, "bytes", out.Size, "sidecar", out.SidecarPath)
	return out, nil
}

func writeSidecar(path string, meta Sidecar) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating sidecar: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(meta); err != nil {
		return fmt.Errorf("encoding sidecar: %w", err)
	}
	return nil
}

// ReadSidecar decodes a sidecar written by WriteExport.
func ReadSidecar(path string) (Sidecar, error) {
	var meta Sidecar
	if _, err := toml.DecodeFile(path, &meta); err != nil {
		return Sidecar{}, fmt.Errorf("reading sidecar: %w", err)
	}
	return meta, nil
}
