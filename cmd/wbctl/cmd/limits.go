package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	domain "github.com/donaldgifford/wb-seller-tracker/pkg/types"
)

func limitsCmd() *cobra.Command {
	var (
		history string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "limits",
		Short: "Show rate limiter state per API category",
		Example: `  wbctl limits
  wbctl limits --history prices --limit 20`,
		RunE: func(_ *cobra.Command, _ []string) error {
			c := newClient()
			ctx := context.Background()

			var (
				snaps []domain.LimiterSnapshot
				err   error
			)
			if history != "" {
				snaps, err = c.RateLimitHistory(ctx, history, limit)
			} else {
				snaps, err = c.RateLimits(ctx)
			}
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(snaps)
			}
			if len(snaps) == 0 {
				fmt.Println("No limiter snapshots found.")
				return nil
			}
			return printLimiterTable(os.Stdout, snaps)
		},
	}

	cmd.Flags().StringVar(&history, "history", "", "show stored snapshots of one category")
	cmd.Flags().IntVar(&limit, "limit", 50, "max snapshots with --history")

	return cmd
}
