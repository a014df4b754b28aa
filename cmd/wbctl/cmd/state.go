package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

func stateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show task counts and the last balance capture",
		RunE: func(_ *cobra.Command, _ []string) error {
			s, err := newClient().SystemState(context.Background())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(s)
			}
			return printSystemState(os.Stdout, s)
		},
	}
}
