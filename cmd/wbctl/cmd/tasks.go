package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/wb-seller-tracker/internal/api/client"
)

func tasksCmd() *cobra.Command {
	tasksRoot := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect and track asynchronous marketplace tasks",
		Long: "Tracked tasks are price uploads and generated reports the server\n" +
			"polls until they succeed, fail or run past their deadline.",
	}

	tasksRoot.AddCommand(
		tasksListCmd(),
		tasksGetCmd(),
		tasksTrackCmd(),
	)

	return tasksRoot
}

func tasksListCmd() *cobra.Command {
	var params apiclient.ListTasksParams

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked tasks",
		Example: `  wbctl tasks list --pending
  wbctl tasks list --kind price_upload --outcome failed --output json`,
		RunE: func(_ *cobra.Command, _ []string) error {
			c := newClient()
			resp, err := c.ListTasks(context.Background(), &params)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(resp)
			}
			if len(resp.Tasks) == 0 {
				fmt.Println("No tasks found.")
				return nil
			}
			if err := printTasksTable(os.Stdout, resp.Tasks); err != nil {
				return err
			}
			fmt.Printf("\n%d of %d tasks\n", len(resp.Tasks), resp.Total)
			return nil
		},
	}

	cmd.Flags().StringVar(&params.Kind, "kind", "", "filter by kind (price_upload, report)")
	cmd.Flags().StringVar(&params.Outcome, "outcome", "", "filter by outcome (succeeded, failed, timed_out)")
	cmd.Flags().BoolVar(&params.Pending, "pending", false, "only tasks still being polled")
	cmd.Flags().IntVar(&params.Limit, "limit", 50, "max results")
	cmd.Flags().IntVar(&params.Offset, "offset", 0, "pagination offset")
	cmd.Flags().StringVar(&params.OrderBy, "order-by", "", "sort order (created_at, updated_at, deadline)")

	return cmd
}

func tasksGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a tracked task",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			c := newClient()
			t, err := c.GetTask(context.Background(), args[0])
			if err != nil {
				if apiclient.IsNotFound(err) {
					return fmt.Errorf("task %s not found", args[0])
				}
				return err
			}
			if jsonOutput() {
				return outputJSON(t)
			}
			return printTaskDetail(os.Stdout, t)
		},
	}
}

func tasksTrackCmd() *cobra.Command {
	var (
		family  string
		label   string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "track <kind> <external-id>",
		Short: "Ask the server to track a task",
		Long: "Registers an upload id or report task id with the server, which polls\n" +
			"it on the task schedule and records the outcome.",
		Example: `  wbctl tasks track price_upload 146567
  wbctl tasks track report 0f3c... --family warehouse_remains --timeout 30m`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			c := newClient()
			t, err := c.TrackTask(context.Background(), &apiclient.TrackTaskRequest{
				Kind:           args[0],
				ExternalID:     args[1],
				Family:         family,
				Label:          label,
				TimeoutSeconds: int(timeout.Seconds()),
			})
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(t)
			}
			fmt.Printf("Tracking task %s (%s %s).\n", t.ID, t.Kind, t.ExternalID)
			return nil
		},
	}

	cmd.Flags().StringVar(&family, "family", "", "report family (report tasks only)")
	cmd.Flags().StringVar(&label, "label", "", "free-form label")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "polling deadline (server default when zero)")

	return cmd
}
