package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	apiclient "github.com/donaldgifford/wb-seller-tracker/internal/api/client"
	domain "github.com/donaldgifford/wb-seller-tracker/pkg/types"
)

const timeLayout = "2006-01-02 15:04:05"

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

func outcome(t *domain.TrackedTask) string {
	if t.Outcome == domain.OutcomePending {
		return "pending"
	}
	return string(t.Outcome)
}

func printTasksTable(w io.Writer, tasks []domain.TrackedTask) error {
	tw := newTabWriter(w)
	tw.writef("ID\tKIND\tEXTERNAL ID\tSTATUS\tOUTCOME\tPROGRESS\tPOLLS\tCREATED\n")
	for i := range tasks {
		t := &tasks[i]
		tw.writef("%s\t%s\t%s\t%s\t%s\t%.0f%%\t%d\t%s\n",
			t.ID,
			t.Kind,
			truncate(t.ExternalID, 24),
			orDash(t.Status),
			outcome(t),
			t.Progress,
			t.Polls,
			t.CreatedAt.Format(timeLayout),
		)
	}
	return tw.finish()
}

func printTaskDetail(w io.Writer, t *domain.TrackedTask) error {
	tw := newTabWriter(w)
	tw.writef("ID:\t%s\n", t.ID)
	tw.writef("Kind:\t%s\n", t.Kind)
	tw.writef("External ID:\t%s\n", t.ExternalID)
	if t.Family != "" {
		tw.writef("Family:\t%s\n", t.Family)
	}
	if t.Label != "" {
		tw.writef("Label:\t%s\n", t.Label)
	}
	tw.writef("Status:\t%s\n", orDash(t.Status))
	tw.writef("Outcome:\t%s\n", outcome(t))
	tw.writef("Progress:\t%.0f%%\n", t.Progress)
	tw.writef("Errors:\t%d\n", t.ErrorsCount)
	if t.ErrorText != "" {
		tw.writef("Error:\t%s\n", t.ErrorText)
	}
	tw.writef("Polls:\t%d\n", t.Polls)
	tw.writef("Deadline:\t%s\n", t.Deadline.Format(timeLayout))
	tw.writef("Last polled:\t%s\n", formatOptional(t.LastPolled))
	tw.writef("Completed:\t%s\n", formatOptional(t.CompletedAt))
	return tw.finish()
}

func printBalance(w io.Writer, b *apiclient.Balance) error {
	tw := newTabWriter(w)
	tw.writef("Currency:\t%s\n", b.Currency)
	tw.writef("Current:\t%.2f\n", b.Current)
	tw.writef("For withdraw:\t%.2f\n", b.ForWithdraw)
	tw.writef("Blocked:\t%.2f\n", b.Blocked)
	tw.writef("Captured:\t%s\n", b.CapturedAt.Format(timeLayout))
	return tw.finish()
}

func printBalanceTable(w io.Writer, snaps []domain.BalanceSnapshot) error {
	tw := newTabWriter(w)
	tw.writef("CAPTURED\tCURRENCY\tCURRENT\tFOR WITHDRAW\n")
	for i := range snaps {
		s := &snaps[i]
		tw.writef("%s\t%s\t%.2f\t%.2f\n",
			s.CapturedAt.Format(timeLayout),
			s.Currency,
			s.Current,
			s.ForWithdraw,
		)
	}
	return tw.finish()
}

func printLimiterTable(w io.Writer, snaps []domain.LimiterSnapshot) error {
	tw := newTabWriter(w)
	tw.writef("CATEGORY\tREMAINING\tLIMIT\tRESET\tCAPTURED\n")
	for i := range snaps {
		s := &snaps[i]
		reset := "-"
		if !s.ResetAt.IsZero() {
			reset = s.ResetAt.Format(timeLayout)
		}
		tw.writef("%s\t%d\t%d\t%s\t%s\n",
			s.Category,
			s.Remaining,
			s.Limit,
			reset,
			s.CapturedAt.Format(timeLayout),
		)
	}
	return tw.finish()
}

func printJobRunsTable(w io.Writer, runs []domain.JobRun) error {
	tw := newTabWriter(w)
	tw.writef("JOB\tSTATUS\tSTARTED\tCOMPLETED\tROWS\tERROR\n")
	for i := range runs {
		r := &runs[i]
		rows := "-"
		if r.RowsAffected != nil {
			rows = fmt.Sprintf("%d", *r.RowsAffected)
		}
		tw.writef("%s\t%s\t%s\t%s\t%s\t%s\n",
			r.JobName,
			r.Status,
			r.StartedAt.Format(timeLayout),
			formatOptional(r.CompletedAt),
			rows,
			truncate(r.ErrorText, 40),
		)
	}
	return tw.finish()
}

func printSystemState(w io.Writer, s *domain.SystemState) error {
	tw := newTabWriter(w)
	tw.writef("Tasks pending:\t%d\n", s.TasksPending)
	tw.writef("Tasks succeeded:\t%d\n", s.TasksSucceeded)
	tw.writef("Tasks failed:\t%d\n", s.TasksFailed)
	tw.writef("Tasks timed out:\t%d\n", s.TasksTimedOut)
	tw.writef("Balance captured:\t%s\n", formatOptional(s.BalanceAt))
	tw.writef("Exhausted limits:\t%s\n", orDash(strings.Join(s.ExhaustedCategories, ", ")))
	return tw.finish()
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(timeLayout)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncate shortens s to maxLen runes, ending in "...".
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
