package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/anigen/anigen/internal/domain"
	"github.com/anigen/anigen/internal/pcm"
	grpctransport "github.com/anigen/anigen/internal/transport/grpc"
	"github.com/anigen/anigen/internal/wav"
	"github.com/anigen/anigen/internal/workflow"
)

type composeFlags struct {
	genre    string
	mood     string
	tempo    string
	duration float64
	export   bool
	play     bool
	save     bool
	remote   string
	token    string
}

// composeResult is what compose prints.
type composeResult struct {
	RequestID   string         `json:"request_id"`
	State       workflow.State `json:"state"`
	Description string         `json:"description,omitempty"`
	HasAudio    bool           `json:"has_audio"`
	Charged     int64          `json:"charged"`
	Balance     int64          `json:"balance"`
	ExportPath  string         `json:"export_path,omitempty"`
	ThemeID     string         `json:"theme_id,omitempty"`
	Error       string         `json:"error,omitempty"`
}

func newComposeCmd(opts *rootOptions) *cobra.Command {
	f := &composeFlags{}
	defaults := domain.DefaultParams()
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Generate a music theme (costs credits)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := domain.Params{
				Genre:           domain.Genre(f.genre),
				Mood:            domain.Mood(f.mood),
				Tempo:           domain.Tempo(f.tempo),
				DurationMinutes: f.duration,
			}
			if err := params.Validate(); err != nil {
				return err
			}
			if f.remote != "" {
				return composeRemote(cmd, opts, f, params)
			}
			return composeLocal(cmd, opts, f, params)
		},
	}
	cmd.Flags().StringVarP(&f.genre, "genre", "g", string(defaults.Genre), "Genre")
	cmd.Flags().StringVarP(&f.mood, "mood", "m", string(defaults.Mood), "Mood")
	cmd.Flags().StringVarP(&f.tempo, "tempo", "t", string(defaults.Tempo), "Tempo")
	cmd.Flags().Float64VarP(&f.duration, "duration", "d", defaults.DurationMinutes, "Duration in minutes (1-8, 0.5 steps)")
	cmd.Flags().BoolVarP(&f.export, "export", "e", false, "Write the audio to app.export_dir as WAV")
	cmd.Flags().BoolVarP(&f.play, "play", "p", false, "Play the audio on the local speaker")
	cmd.Flags().BoolVarP(&f.save, "save", "s", false, "Save the theme to the vault")
	cmd.Flags().StringVar(&f.remote, "remote", "", "Compose on a running daemon (gRPC host:port)")
	cmd.Flags().StringVar(&f.token, "token", "", "Admin token for the remote daemon")
	return cmd
}

func composeLocal(cmd *cobra.Command, opts *rootOptions, f *composeFlags, params domain.Params) error {
	ctx := cmd.Context()
	a, err := opts.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.Session(ctx, opts.accountID(a.Config))
	if err != nil {
		return err
	}
	out, err := s.Generate(ctx, params)
	if err != nil {
		return err
	}
	res := composeResult{
		RequestID:   out.RequestID.String(),
		State:       out.State,
		Description: out.Description,
		HasAudio:    out.HasAudio(),
		Charged:     out.Charged,
	}
	res.Balance, _ = s.Ledger().Balance(ctx)
	if out.Err != nil {
		res.Error = out.Err.Error()
	}

	if out.State == workflow.StateReady {
		if f.save {
			theme, err := s.SaveTheme(ctx)
			if err != nil {
				return err
			}
			res.ThemeID = theme.ID
		}
		if f.export && out.HasAudio() {
			theme, err := s.Theme()
			if err != nil {
				return err
			}
			exp, err := wav.WriteExport(a.Config.App.ExportDir, a.Config.App.Name, theme, out.Audio, time.Now(), a.Config.App.ExportSidecar)
			if err != nil {
				return err
			}
			res.ExportPath = exp.Path
		}
	}

	if err := printCompose(cmd.OutOrStdout(), opts, res); err != nil {
		return err
	}

	if f.play && out.State == workflow.StateReady {
		if err := s.Play(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "playing %s (ctrl-c to stop)\n", out.Audio.Duration().Round(time.Second))
		if err := s.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return outcomeErr(out.State, out.Err)
}

func composeRemote(cmd *cobra.Command, opts *rootOptions, f *composeFlags, params domain.Params) error {
	ctx := cmd.Context()
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	c, err := grpctransport.Dial(f.remote, f.token)
	if err != nil {
		return err
	}
	defer c.Close()

	account := opts.accountID(cfg)
	reply, err := c.Compose(ctx, account, params, f.export)
	if err != nil {
		return err
	}
	res := composeResult{
		RequestID:   reply.RequestID,
		State:       reply.State,
		Description: reply.Description,
		HasAudio:    reply.HasAudio,
		Charged:     reply.Charged,
		Balance:     reply.Balance,
	}
	if f.export && len(reply.PCM) > 0 {
		asset, err := pcm.NewAsset(reply.PCM, reply.SampleRate)
		if err != nil {
			return err
		}
		theme := domain.MusicTheme{
			ID:              uuid.NewString(),
			AccountID:       account,
			Description:     reply.Description,
			Genre:           params.Genre,
			Mood:            params.Mood,
			Tempo:           params.Tempo,
			DurationMinutes: params.DurationMinutes,
			Timestamp:       time.Now(),
		}
		exp, err := wav.WriteExport(cfg.App.ExportDir, cfg.App.Name, theme, asset, theme.Timestamp, cfg.App.ExportSidecar)
		if err != nil {
			return err
		}
		res.ExportPath = exp.Path
	}
	if f.play || f.save {
		slog.Warn("--play and --save are not available with --remote; use the HTTP API instead")
	}
	return printCompose(cmd.OutOrStdout(), opts, res)
}

func printCompose(w io.Writer, opts *rootOptions, res composeResult) error {
	return opts.print(w, res, func(w io.Writer) {
		fmt.Fprintf(w, "%s  (%d credits left)\n", res.State, res.Balance)
		if res.Description != "" {
			fmt.Fprintf(w, "\n%s\n\n", res.Description)
		}
		if res.Error != "" {
			fmt.Fprintf(w, "error: %s\n", res.Error)
		}
		if res.ExportPath != "" {
			fmt.Fprintf(w, "exported %s\n", res.ExportPath)
		}
		if res.ThemeID != "" {
			fmt.Fprintf(w, "saved theme %s\n", res.ThemeID)
		}
	})
}

// outcomeErr turns non-Ready outcomes into a non-zero exit.
func outcomeErr(state workflow.State, err error) error {
	switch state {
	case workflow.StateReady:
		return nil
	case workflow.StateRejected:
		return domain.ErrInsufficientCredits
	default:
		if err == nil {
			err = errors.New("generation failed")
		}
		return err
	}
}

func newImageCmd(opts *rootOptions) *cobra.Command {
	var (
		prompt domain.ImagePrompt
		out    string
	)
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Generate an illustration (costs credits)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := prompt.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.Session(ctx, opts.accountID(a.Config))
			if err != nil {
				return err
			}
			res, err := s.GenerateImage(ctx, prompt)
			if err != nil {
				return err
			}
			if res.State != workflow.StateReady {
				return outcomeErr(res.State, res.Err)
			}
			if out == "" {
				out = filepath.Join(a.Config.App.ExportDir, fmt.Sprintf("%s_Art_%d.png", a.Config.App.Name, time.Now().UnixMilli()))
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(out, res.Image, 0o644); err != nil {
				return err
			}
			balance, _ := s.Ledger().Balance(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes, %d credits left)\n", out, len(res.Image), balance)
			return nil
		},
	}
	cmd.Flags().StringVar(&prompt.Character, "character", "", "Character description (required)")
	cmd.Flags().StringVar(&prompt.Environment, "environment", "", "Environment description (required)")
	cmd.Flags().StringVar(&prompt.Extra, "extra", "", "Additional details")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: app.export_dir/<app>_Art_<ms>.png)")
	return cmd
}
