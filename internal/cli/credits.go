package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/anigen/anigen/internal/ledger"
)

func newBalanceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the account's credit balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			l, err := a.Book.Ledger(cmd.Context(), opts.accountID(a.Config))
			if err != nil {
				return err
			}
			snap, err := l.Current(cmd.Context())
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), snap, func(w io.Writer) {
				fmt.Fprintf(w, "%s: %d credits (grant %d, renews %s)\n",
					snap.AccountID, snap.Balance, snap.MonthlyGrant, snap.NextResetAt.Local().Format(time.DateOnly))
			})
		},
	}
}

func newCreditCmd(opts *rootOptions) *cobra.Command {
	var reference string
	cmd := &cobra.Command{
		Use:   "credit AMOUNT",
		Short: "Add purchased or complimentary credits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[0])
			}
			a, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			l, err := a.Book.Ledger(cmd.Context(), opts.accountID(a.Config))
			if err != nil {
				return err
			}
			if reference == "" {
				reference = "cli:" + uuid.NewString()
			}
			if err := l.Credit(cmd.Context(), amount, reference); err != nil {
				return err
			}
			snap, err := l.Current(cmd.Context())
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), snap, func(w io.Writer) {
				fmt.Fprintf(w, "%s: %d credits\n", snap.AccountID, snap.Balance)
			})
		},
	}
	cmd.Flags().StringVarP(&reference, "reference", "r", "", "Journal reference (e.g., an order ID)")
	return cmd
}

func newLedgerCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "List the account's journal, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			l, err := a.Book.Ledger(cmd.Context(), opts.accountID(a.Config))
			if err != nil {
				return err
			}
			entries, err := l.Entries(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if entries == nil {
				entries = []ledger.Entry{}
			}
			return opts.print(cmd.OutOrStdout(), entries, func(w io.Writer) {
				for _, e := range entries {
					fmt.Fprintf(w, "%s  %-8s %+4d  -> %3d  %s\n",
						e.Timestamp.Local().Format(time.DateTime), e.Type, e.Amount, e.BalanceAfter, e.Reference)
				}
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Max entries (0 for all)")
	return cmd
}
