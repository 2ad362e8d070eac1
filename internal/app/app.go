// Package app assembles the studio from configuration: persistence,
// provider backends, playback, and the workflow manager. The daemon and the
// CLI build the same App.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/anigen/anigen/internal/config"
	"github.com/anigen/anigen/internal/domain"
	"github.com/anigen/anigen/internal/ledger"
	"github.com/anigen/anigen/internal/playback"
	"github.com/anigen/anigen/internal/playback/speaker"
	"github.com/anigen/anigen/internal/provider"
	"github.com/anigen/anigen/internal/provider/gemini"
	"github.com/anigen/anigen/internal/provider/local"
	"github.com/anigen/anigen/internal/provider/openai"
	"github.com/anigen/anigen/internal/provider/piper"
	"github.com/anigen/anigen/internal/store/postgres"
	"github.com/anigen/anigen/internal/store/sqlite"
	"github.com/anigen/anigen/internal/vault"
	"github.com/anigen/anigen/internal/workflow"
)

// App is a fully wired studio.
type App struct {
	Config *config.Config
	Book   *ledger.Book
	Vault  vault.Store
	Output *speaker.Output // nil when playback is disabled
	Studio *workflow.Manager

	ping    func(context.Context) error
	closers []func() error
}

// Options overrides parts of the assembly, mainly for tests.
type Options struct {
	Describer provider.Describer
	Speech    provider.Speech
	Imager    provider.Imager
}

// Build wires an App from cfg.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	ledgers, themes, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.Vault = themes
	a.Book = ledger.NewBook(ledgers, ledger.Policy{
		MonthlyGrant:  cfg.Ledger.MonthlyGrant,
		RenewalPeriod: cfg.Ledger.RenewalPeriod,
	})

	wcfg := workflow.Config{
		Describer:  opts.Describer,
		Speech:     opts.Speech,
		Imager:     opts.Imager,
		Vault:      themes,
		AppName:    cfg.App.Name,
		Voice:      cfg.Providers.Speech.Voice,
		SampleRate: cfg.Audio.SampleRate,
		MusicCost:  cfg.Ledger.GenerationCost,
		ImageCost:  cfg.Ledger.ImageCost,
	}
	if err := a.openProviders(ctx, &wcfg); err != nil {
		return nil, err
	}

	if cfg.Audio.Playback.Enabled {
		a.Output = speaker.New(cfg.Audio.SampleRate, cfg.Audio.Playback.Buffer)
		wcfg.NewPlayer = func() workflow.Player {
			return playback.NewController(a.Output, cfg.Audio.SampleRate, domain.Channels)
		}
		a.closers = append(a.closers, a.Output.Suspend)
		slog.Info("speaker playback enabled", "sample_rate", cfg.Audio.SampleRate, "buffer", cfg.Audio.Playback.Buffer)
	}

	a.Studio, err = workflow.NewManager(a.Book, wcfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Studio.Close)

	ok = true
	return a, nil
}

func (a *App) openStore(ctx context.Context) (ledger.Store, vault.Store, error) {
	cfg := a.Config.Store
	switch cfg.Driver {
	case "sqlite":
		s, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		a.ping = s.Ping
		a.closers = append(a.closers, s.Close)
		slog.Info("using sqlite store", "path", cfg.SQLite.Path)
		return s, s, nil
	case "postgres":
		s, err := postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		a.ping = s.Ping
		a.closers = append(a.closers, s.Close)
		slog.Info("using postgres store")
		return s, s, nil
	case "memory":
		slog.Warn("using in-memory store; credits and themes are lost on exit")
		return ledger.NewMemoryStore(), vault.NewMemoryStore(), nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func (a *App) openProviders(ctx context.Context, w *workflow.Config) error {
	p := a.Config.Providers

	var gem *gemini.Client
	geminiClient := func() (*gemini.Client, error) {
		if gem != nil {
			return gem, nil
		}
		c, err := gemini.New(ctx, p.Gemini, "")
		if err != nil {
			return nil, err
		}
		gem = c
		return gem, nil
	}

	if w.Describer == nil {
		switch p.Describer.Backend {
		case "gemini":
			c, err := geminiClient()
			if err != nil {
				return err
			}
			w.Describer = c
		case "openai":
			w.Describer = openai.New(p.OpenAI)
		case "local":
			w.Describer = local.New(p.Local)
		default:
			return fmt.Errorf("unknown describer backend %q", p.Describer.Backend)
		}
		slog.Info("using describer", "backend", w.Describer.Name())
	}

	if w.Speech == nil && p.Speech.Enabled {
		switch p.Speech.Backend {
		case "gemini":
			c, err := geminiClient()
			if err != nil {
				return err
			}
			w.Speech = c
		case "openai":
			w.Speech = openai.New(p.OpenAI)
		case "piper":
			w.Speech = piper.New(p.Piper, a.Config.Audio.SampleRate)
		default:
			return fmt.Errorf("unknown speech backend %q", p.Speech.Backend)
		}
		slog.Info("using speech", "backend", w.Speech.Name(), "voice", p.Speech.Voice)
	}

	if w.Imager == nil && p.Imager.Enabled {
		switch p.Imager.Backend {
		case "gemini":
			c, err := geminiClient()
			if err != nil {
				return err
			}
			w.Imager = c
		default:
			return fmt.Errorf("unknown imager backend %q", p.Imager.Backend)
		}
		slog.Info("using imager", "backend", w.Imager.Name())
	}
	return nil
}

// Ping checks the persistence backend.
func (a *App) Ping(ctx context.Context) error {
	if a.ping == nil {
		return nil
	}
	return a.ping(ctx)
}

// Session returns the workflow session of accountID.
func (a *App) Session(ctx context.Context, accountID string) (*workflow.Session, error) {
	return a.Studio.Session(ctx, accountID)
}

// Close releases everything Build opened, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
