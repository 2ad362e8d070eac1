package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/anigen/anigen/internal/domain"
)

func newThemesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "themes",
		Short: "Manage saved themes",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List saved themes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			themes, err := a.Vault.Themes(cmd.Context(), opts.accountID(a.Config), limit)
			if err != nil {
				return err
			}
			if themes == nil {
				themes = []domain.MusicTheme{}
			}
			return opts.print(cmd.OutOrStdout(), themes, func(w io.Writer) {
				for _, t := range themes {
					fmt.Fprintf(w, "%s  %s  %s / %s / %s  %.1f min\n    %s\n",
						t.ID, t.Timestamp.Local().Format(time.DateTime), t.Genre, t.Mood, t.Tempo, t.DurationMinutes, t.Description)
				}
			})
		},
	}
	list.Flags().IntVarP(&limit, "limit", "l", 20, "Max themes (0 for all)")

	rm := &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a saved theme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Vault.DeleteTheme(cmd.Context(), opts.accountID(a.Config), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, rm)
	return cmd
}
