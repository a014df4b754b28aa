package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/donaldgifford/wb-seller-tracker/internal/config"
	"github.com/donaldgifford/wb-seller-tracker/internal/tui"
	"github.com/donaldgifford/wb-seller-tracker/pkg/wb"
)

// waitTask runs wait with a progress bar on a terminal and plain log
// lines otherwise.
func waitTask(ctx context.Context, cfg *config.Config, title string, wait tui.WaitFunc) (*wb.TaskSnapshot, error) {
	if !jsonOutput && tui.IsTerminal(os.Stdout) {
		return tui.Run(ctx, os.Stdout, title, wait)
	}

	log := console(cfg)
	return wait(ctx, func(s *wb.TaskSnapshot) {
		log.Info(title,
			"status", s.Status,
			"processed", s.ProcessedItems,
			"total", s.TotalItems,
			"errors", s.ErrorsCount,
		)
	})
}

// reportWait prints the outcome of a wait and returns the error to exit with.
func reportWait(snap *wb.TaskSnapshot, err error) error {
	var failed *wb.TaskFailedError
	var timedOut *wb.TaskTimeoutError

	switch {
	case errors.As(err, &failed):
		if jsonOutput {
			_ = outputJSON(failed)
		} else {
			for _, e := range failed.Errors {
				fmt.Fprintln(os.Stderr, string(e))
			}
		}
		return err
	case errors.As(err, &timedOut):
		if timedOut.Last != nil {
			_ = printSnapshot(timedOut.Last)
		}
		return err
	case err != nil:
		return err
	}

	return printSnapshot(snap)
}

func printSnapshot(s *wb.TaskSnapshot) error {
	if jsonOutput {
		return outputJSON(s)
	}

	tw := newTabWriter(os.Stdout)
	tw.writef("Task:\t%s\n", s.TaskID)
	tw.writef("Status:\t%s\n", s.Status)
	if s.TotalItems > 0 {
		tw.writef("Progress:\t%d/%d (%.0f%%)\n", s.ProcessedItems, s.TotalItems, s.ProgressPercent())
	}
	tw.writef("Errors:\t%d\n", s.ErrorsCount)
	return tw.finish()
}

func pollerOptions(timeout time.Duration) []wb.PollerOption {
	if timeout <= 0 {
		return nil
	}
	return []wb.PollerOption{wb.WithTimeout(timeout)}
}
