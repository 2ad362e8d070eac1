// Package cli implements the anigen commands: the daemon and the local
// studio tools built on the same workflow.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/anigen/anigen/internal/app"
	"github.com/anigen/anigen/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

type rootOptions struct {
	configFile string
	account    string
	format     string

	// overrides injected by tests
	appOptions app.Options
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootOptions{})
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "anigen",
		Short:         "Credit-gated anime music and illustration studio",
		Long:          "AniGen turns genre, mood, and tempo into an atmosphere description and spoken audio, charging credits per request.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "Path to config file (default: ./anigen.yaml, ./configs/anigen.yaml, /etc/anigen/anigen.yaml)")
	cmd.PersistentFlags().StringVarP(&opts.account, "account", "a", "", "Account ID (default: app.default_account)")
	cmd.PersistentFlags().StringVarP(&opts.format, "format", "f", "text", "Output format: json or text")

	cmd.AddCommand(
		newServeCmd(opts),
		newBalanceCmd(opts),
		newCreditCmd(opts),
		newLedgerCmd(opts),
		newComposeCmd(opts),
		newImageCmd(opts),
		newThemesCmd(opts),
		newWavCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}
	config.SetupLogging(cfg.Logging)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (o *rootOptions) openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return app.Build(cmd.Context(), cfg, o.appOptions)
}

func (o *rootOptions) accountID(cfg *config.Config) string {
	if o.account != "" {
		return o.account
	}
	return cfg.App.DefaultAccount
}

// print writes v as indented JSON, or calls text when the format is text.
func (o *rootOptions) print(w io.Writer, v any, text func(io.Writer)) error {
	switch o.format {
	case "json":
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "text", "":
		text(w)
		return nil
	default:
		return fmt.Errorf("unknown format %q", o.format)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "anigen %s\n", version)
		},
	}
}
