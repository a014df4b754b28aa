package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/log"

	"github.com/donaldgifford/wb-seller-tracker/internal/config"
	"github.com/donaldgifford/wb-seller-tracker/pkg/logger"
	"github.com/donaldgifford/wb-seller-tracker/pkg/wb"
)

// newWBClient builds a marketplace client from the wb and polling
// sections of the config file.
func newWBClient() (*wb.Client, *config.Config, error) {
	cfg, err := config.LoadClient(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	cc, err := cfg.WB.ClientConfig()
	if err != nil {
		return nil, nil, err
	}

	client, err := wb.NewClient(cc,
		wb.WithLogger(logger.New(cfg.Logging.Level, cfg.Logging.Format)),
		wb.WithUserAgent(cfg.WB.UserAgent),
		wb.WithPollerOptions(cfg.Polling.Options()...),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("creating wb client: %w", err)
	}

	return client, cfg, nil
}

// console is the human-facing logger of the direct commands.
func console(cfg *config.Config) *log.Logger {
	return logger.Console(os.Stderr, cfg.Logging.Level)
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}
