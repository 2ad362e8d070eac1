package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/anigen/anigen/internal/wav"
)

func newWavCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wav",
		Short: "Inspect exported audio",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "inspect FILE",
		Short: "Print the format of a WAV file and its sidecar metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			info, err := wav.Inspect(f)
			if err != nil {
				return err
			}

			result := struct {
				wav.Info
				Sidecar *wav.Sidecar `json:"sidecar,omitempty"`
			}{Info: info}
			if meta, err := wav.ReadSidecar(strings.TrimSuffix(args[0], ".wav") + ".toml"); err == nil {
				result.Sidecar = &meta
			}

			return opts.print(cmd.OutOrStdout(), result, func(w io.Writer) {
				fmt.Fprintf(w, "%s: %d Hz, %d ch, %d-bit, %d frames (%s)\n",
					args[0], info.SampleRate, info.Channels, info.BitDepth, info.Frames, info.Duration)
				if s := result.Sidecar; s != nil {
					fmt.Fprintf(w, "%s / %s / %s, exported %s\n%s\n", s.Genre, s.Mood, s.Tempo, s.ExportedAt.Local().Format(time.DateTime), s.Description)
				}
			})
		},
	})
	return cmd
}
