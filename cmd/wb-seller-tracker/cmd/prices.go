package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/wb-seller-tracker/pkg/wb"
)

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Upload prices and follow upload tasks",
}

var pricesUploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload prices and discounts from a JSON file",
	Long: "Uploads a JSON array of {\"nmID\", \"price\", \"discount\"} objects in batches\n" +
		"of up to 1000 products and prints the upload id of each batch.",
	Example: `  wb-seller-tracker prices upload --file prices.json
  wb-seller-tracker prices upload --file prices.json --wait`,
	RunE: runPricesUpload,
}

var pricesStatusCmd = &cobra.Command{
	Use:   "status <upload-id>",
	Short: "Print the current state of an upload",
	Args:  cobra.ExactArgs(1),
	RunE:  runPricesStatus,
}

var pricesWaitCmd = &cobra.Command{
	Use:   "wait <upload-id>",
	Short: "Wait for an upload to finish",
	Args:  cobra.ExactArgs(1),
	RunE:  runPricesWait,
}

var (
	pricesFile    string
	pricesWait    bool
	pricesTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(pricesCmd)
	pricesCmd.AddCommand(pricesUploadCmd, pricesStatusCmd, pricesWaitCmd)

	pricesUploadCmd.Flags().StringVar(&pricesFile, "file", "", "JSON file with prices")
	pricesUploadCmd.Flags().BoolVar(&pricesWait, "wait", false, "wait for each batch to finish")
	pricesCmd.PersistentFlags().DurationVar(&pricesTimeout, "timeout", 0, "wait timeout (default from config)")
}

func readPrices(path string) ([]wb.Price, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path from CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading prices file: %w", err)
	}
	var prices []wb.Price
	if err := json.Unmarshal(data, &prices); err != nil {
		return nil, fmt.Errorf("parsing prices file: %w", err)
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("%s has no prices", path)
	}
	for i, p := range prices {
		if p.NmID <= 0 {
			return nil, fmt.Errorf("entry %d: nmID is required", i)
		}
	}
	return prices, nil
}

func runPricesUpload(cmd *cobra.Command, _ []string) error {
	if pricesFile == "" {
		return fmt.Errorf("--file is required")
	}
	prices, err := readPrices(pricesFile)
	if err != nil {
		return err
	}

	client, cfg, err := newWBClient()
	if err != nil {
		return err
	}
	log := console(cfg)
	ctx := cmd.Context()

	for start := 0; start < len(prices); start += wb.MaxPriceBatch {
		batch := prices[start:min(start+wb.MaxPriceBatch, len(prices))]

		task, err := client.Prices.UploadPrices(ctx, batch)
		if err != nil {
			return fmt.Errorf("uploading batch at %d: %w", start, err)
		}
		log.Info("upload accepted", "id", task.ID, "products", len(batch), "already_exists", task.AlreadyExists)

		if !pricesWait {
			continue
		}
		id := task.TaskID()
		snap, err := waitTask(ctx, cfg, "Price upload "+id, func(ctx context.Context, onProgress wb.ProgressFunc) (*wb.TaskSnapshot, error) {
			return client.Prices.WaitForUpload(ctx, id, onProgress, pollerOptions(pricesTimeout)...)
		})
		if err := reportWait(snap, err); err != nil {
			return err
		}
	}
	return nil
}

func runPricesStatus(cmd *cobra.Command, args []string) error {
	client, _, err := newWBClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	snap, err := client.Prices.TaskSnapshot(ctx, args[0])
	if err != nil {
		return err
	}
	return printSnapshot(snap)
}

func runPricesWait(cmd *cobra.Command, args []string) error {
	client, cfg, err := newWBClient()
	if err != nil {
		return err
	}

	id := args[0]
	snap, err := waitTask(cmd.Context(), cfg, "Price upload "+id, func(ctx context.Context, onProgress wb.ProgressFunc) (*wb.TaskSnapshot, error) {
		return client.Prices.WaitForUpload(ctx, id, onProgress, pollerOptions(pricesTimeout)...)
	})
	return reportWait(snap, err)
}
