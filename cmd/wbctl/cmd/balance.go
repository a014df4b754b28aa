package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func balanceCmd() *cobra.Command {
	var (
		history bool
		since   time.Duration
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the seller balance",
		Example: `  wbctl balance
  wbctl balance --history --since 72h`,
		RunE: func(_ *cobra.Command, _ []string) error {
			c := newClient()
			ctx := context.Background()

			if !history {
				b, err := c.GetBalance(ctx)
				if err != nil {
					return err
				}
				if jsonOutput() {
					return outputJSON(b)
				}
				return printBalance(os.Stdout, b)
			}

			snaps, err := c.BalanceHistory(ctx, time.Now().Add(-since), limit)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(snaps)
			}
			if len(snaps) == 0 {
				fmt.Println("No balance snapshots found.")
				return nil
			}
			return printBalanceTable(os.Stdout, snaps)
		},
	}

	cmd.Flags().BoolVar(&history, "history", false, "show stored snapshots instead of the latest")
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "history window")
	cmd.Flags().IntVar(&limit, "limit", 100, "max snapshots")

	return cmd
}
