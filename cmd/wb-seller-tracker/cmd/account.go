package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/wb-seller-tracker/internal/config"
	"github.com/donaldgifford/wb-seller-tracker/pkg/wb"
)

const requestTimeout = time.Minute

var pingCmd = &cobra.Command{
	Use:   "ping [category...]",
	Short: "Check connectivity and token access per API category",
	Example: `  wb-seller-tracker ping
  wb-seller-tracker ping prices finance`,
	RunE: runPing,
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print the seller account balance",
	RunE:  runBalance,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Decode the configured API token",
	Long: "Decodes the API token locally and prints its seller, access type, expiry\n" +
		"and the categories it grants. The signature is not verified.",
	RunE: runToken,
}

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Print the configured rate limit of every API category",
	RunE:  runLimits,
}

func init() {
	rootCmd.AddCommand(pingCmd, balanceCmd, tokenCmd, limitsCmd)
}

type pingRow struct {
	Category wb.Category `json:"category"`
	Status   string      `json:"status"`
	TS       string      `json:"ts,omitempty"`
	Error    string      `json:"error,omitempty"`
}

func runPing(cmd *cobra.Command, args []string) error {
	client, _, err := newWBClient()
	if err != nil {
		return err
	}

	cats := wb.Categories()
	if len(args) > 0 {
		cats = make([]wb.Category, 0, len(args))
		for _, a := range args {
			c, err := wb.ParseCategory(a)
			if err != nil {
				return err
			}
			cats = append(cats, c)
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	rows := make([]pingRow, 0, len(cats))
	var failed int
	for _, c := range cats {
		res, err := client.Common.Ping(ctx, c)
		if err != nil {
			failed++
			rows = append(rows, pingRow{Category: c, Status: "error", Error: err.Error()})
			continue
		}
		rows = append(rows, pingRow{Category: c, Status: res.Status, TS: res.TS})
	}

	if jsonOutput {
		if err := outputJSON(rows); err != nil {
			return err
		}
	} else {
		tw := newTabWriter(os.Stdout)
		tw.writef("CATEGORY\tSTATUS\tTS\tERROR\n")
		for _, r := range rows {
			tw.writef("%s\t%s\t%s\t%s\n", r.Category, r.Status, orDash(r.TS), orDash(r.Error))
		}
		if err := tw.finish(); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d categories failed", failed, len(cats))
	}
	return nil
}

func runBalance(cmd *cobra.Command, _ []string) error {
	client, _, err := newWBClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	b, err := client.Finance.Balance(ctx)
	if err != nil {
		return fmt.Errorf("reading balance: %w", err)
	}

	if jsonOutput {
		return outputJSON(b)
	}

	tw := newTabWriter(os.Stdout)
	tw.writef("Current:\t%.2f %s\n", b.Current, b.Currency)
	tw.writef("For withdraw:\t%.2f %s\n", b.ForWithdraw, b.Currency)
	tw.writef("Blocked:\t%.2f %s (%.1f%%)\n", b.Blocked(), b.Currency, b.BlockedPercent())
	return tw.finish()
}

func runToken(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadClient(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	info, err := wb.ParseToken(cfg.WB.Token)
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(info)
	}

	now := time.Now()
	tw := newTabWriter(os.Stdout)
	tw.writef("Token ID:\t%s\n", orDash(info.TokenID))
	tw.writef("Seller ID:\t%s\n", orDash(info.SellerID))
	tw.writef("Access:\t%s\n", info.AccessType)
	tw.writef("Read only:\t%v\n", info.ReadOnly)
	if info.ExpiresAt.IsZero() {
		tw.writef("Expires:\t-\n")
	} else {
		tw.writef("Expires:\t%s (in %s)\n",
			info.ExpiresAt.Format(time.RFC3339), info.ExpiresAt.Sub(now).Round(time.Hour))
	}
	tw.writef("Categories:\t%v\n", info.Categories)
	if err := tw.finish(); err != nil {
		return err
	}

	if err := info.Validate(now); errors.Is(err, wb.ErrTokenExpired) {
		return err
	}
	return nil
}

type limitRow struct {
	Category wb.Category `json:"category"`
	RPM      int         `json:"rpm"`
	Burst    int         `json:"burst"`
	Host     string      `json:"host"`
}

func runLimits(_ *cobra.Command, _ []string) error {
	client, cfg, err := newWBClient()
	if err != nil {
		return err
	}

	rows := make([]limitRow, 0, len(wb.Categories()))
	for _, c := range wb.Categories() {
		rl := client.RateLimit(c)
		host := c.BaseURL(cfg.WB.Sandbox)
		if cfg.WB.BaseURL != "" {
			host = cfg.WB.BaseURL
		}
		rows = append(rows, limitRow{Category: c, RPM: rl.RPM, Burst: rl.Burst, Host: host})
	}

	if jsonOutput {
		return outputJSON(rows)
	}

	tw := newTabWriter(os.Stdout)
	tw.writef("CATEGORY\tRPM\tBURST\tHOST\n")
	for _, r := range rows {
		tw.writef("%s\t%d\t%d\t%s\n", r.Category, r.RPM, r.Burst, r.Host)
	}
	return tw.finish()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
