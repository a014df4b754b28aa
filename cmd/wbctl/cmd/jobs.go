package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func jobsCmd() *cobra.Command {
	jobsRoot := &cobra.Command{
		Use:   "jobs",
		Short: "View and trigger scheduler jobs",
		Long: "View the execution history of scheduled jobs (sync_balance,\n" +
			"poll_tasks, snapshot_limits) or run one immediately.",
	}

	jobsRoot.AddCommand(
		jobsListCmd(),
		jobsHistoryCmd(),
		jobsTriggerCmd(),
	)

	return jobsRoot
}

func jobsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List latest run per job",
		Example: `  wbctl jobs list
  wbctl jobs list --output json`,
		RunE: func(_ *cobra.Command, _ []string) error {
			c := newClient()
			runs, err := c.ListJobs(context.Background())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(runs)
			}
			if len(runs) == 0 {
				fmt.Println("No job runs found.")
				return nil
			}
			return printJobRunsTable(os.Stdout, runs)
		},
	}
}

func jobsHistoryCmd() *cobra.Command {
	var (
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "history <job_name>",
		Short: "Show run history for a job",
		Args:  cobra.ExactArgs(1),
		Example: `  wbctl jobs history poll_tasks
  wbctl jobs history sync_balance --status failed --limit 5
  wbctl jobs history snapshot_limits --output json`,
		RunE: func(_ *cobra.Command, args []string) error {
			c := newClient()
			runs, err := c.GetJobHistory(context.Background(), args[0], status, limit)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(runs)
			}
			if len(runs) == 0 {
				fmt.Printf("No runs found for job %q.\n", args[0])
				return nil
			}
			return printJobRunsTable(os.Stdout, runs)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only runs with this status (running, succeeded, failed)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum runs to show (server default 20)")
	return cmd
}

func jobsTriggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "trigger <job_name>",
		Short:   "Run a job now",
		Args:    cobra.ExactArgs(1),
		Example: `  wbctl jobs trigger poll_tasks`,
		RunE: func(_ *cobra.Command, args []string) error {
			c := newClient()
			res, err := c.TriggerJob(context.Background(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(res)
			}
			fmt.Printf("Job %s: %s.\n", res.Job, res.Status)
			return nil
		},
	}
}
