package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/wb-seller-tracker/pkg/wb"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Generate seller reports",
}

var reportsGenerateCmd = &cobra.Command{
	Use:   "generate <family>",
	Short: "Create a report, wait for it and download the rows",
	Long: "Families: warehouse_remains, acceptance_report, paid_storage.\n" +
		"Acceptance and paid storage reports require --from and --to.",
	Example: `  wb-seller-tracker reports generate warehouse_remains --group-by brand,subject --out remains.json
  wb-seller-tracker reports generate paid_storage --from 2025-03-01 --to 2025-03-07`,
	Args: cobra.ExactArgs(1),
	RunE: runReportsGenerate,
}

var reportsRemainsCmd = &cobra.Command{
	Use:   "remains",
	Short: "Generate the warehouse remains report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return generateReport(cmd.Context(), wb.ReportWarehouseRemains)
	},
}

var (
	reportFrom    string
	reportTo      string
	reportGroupBy []string
	reportOut     string
	reportTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(reportsGenerateCmd, reportsRemainsCmd)

	f := reportsCmd.PersistentFlags()
	f.StringVar(&reportFrom, "from", "", "period start (YYYY-MM-DD)")
	f.StringVar(&reportTo, "to", "", "period end (YYYY-MM-DD)")
	f.StringSliceVar(&reportGroupBy, "group-by", nil,
		"remains grouping: brand, subject, sa, nm, barcode, size")
	f.StringVar(&reportOut, "out", "", "write rows to file instead of stdout")
	f.DurationVar(&reportTimeout, "timeout", 0, "wait timeout (default from config)")
}

func runReportsGenerate(cmd *cobra.Command, args []string) error {
	family, err := wb.ParseReportFamily(args[0])
	if err != nil {
		return err
	}
	return generateReport(cmd.Context(), family)
}

// groupByFlags maps short grouping names to the query flags of the
// warehouse remains report.
func groupByFlags(names []string) ([]string, error) {
	known := map[string]string{
		"brand":   "groupByBrand",
		"subject": "groupBySubject",
		"sa":      "groupBySa",
		"nm":      "groupByNm",
		"barcode": "groupByBarcode",
		"size":    "groupBySize",
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		flag, ok := known[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return nil, fmt.Errorf("unknown grouping %q", n)
		}
		out = append(out, flag)
	}
	return out, nil
}

func reportOptions() (wb.ReportOptions, error) {
	var opts wb.ReportOptions
	var err error
	if reportFrom != "" {
		if opts.DateFrom, err = time.Parse(time.DateOnly, reportFrom); err != nil {
			return opts, fmt.Errorf("invalid --from: %w", err)
		}
	}
	if reportTo != "" {
		if opts.DateTo, err = time.Parse(time.DateOnly, reportTo); err != nil {
			return opts, fmt.Errorf("invalid --to: %w", err)
		}
	}
	if opts.GroupBy, err = groupByFlags(reportGroupBy); err != nil {
		return opts, err
	}
	return opts, nil
}

func generateReport(ctx context.Context, family wb.ReportFamily) error {
	opts, err := reportOptions()
	if err != nil {
		return err
	}

	client, cfg, err := newWBClient()
	if err != nil {
		return err
	}

	task, err := client.Reports.Create(ctx, family, opts)
	if err != nil {
		return err
	}
	console(cfg).Info("report requested", "family", family, "task", task.TaskID)

	snap, err := waitTask(ctx, cfg, "Report "+string(family), func(ctx context.Context, onProgress wb.ProgressFunc) (*wb.TaskSnapshot, error) {
		return client.Reports.Wait(ctx, family, task.TaskID, onProgress, pollerOptions(reportTimeout)...)
	})
	if err != nil {
		return reportWait(snap, err)
	}

	rows, err := client.Reports.Download(ctx, family, task.TaskID)
	if err != nil {
		return err
	}

	if reportOut == "" {
		_, err = os.Stdout.Write(append(rows, '\n'))
		return err
	}
	if err := os.WriteFile(reportOut, rows, 0o600); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	console(cfg).Info("report written", "file", reportOut, "bytes", len(rows))
	return nil
}
