package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/donaldgifford/wb-seller-tracker/internal/metrics"
	"github.com/donaldgifford/wb-seller-tracker/internal/notify"
	"github.com/donaldgifford/wb-seller-tracker/internal/store"
	"github.com/donaldgifford/wb-seller-tracker/pkg/wb"
	domain "github.com/donaldgifford/wb-seller-tracker/pkg/types"
)

// ErrInvalidTask is returned by TrackTask for unknown kinds or families.
var ErrInvalidTask = errors.New("invalid task")

// maxErrorText caps the error text stored on a task.
const maxErrorText = 1000

// TrackRequest describes a remote task to start tracking.
type TrackRequest struct {
	Kind       domain.TaskKind
	ExternalID string
	Family     string
	Label      string
	// Timeout overrides the engine's task timeout when positive.
	Timeout time.Duration
}

// TrackTask validates req and stores it as a pending task. Tracking the
// same task again returns the existing row.
func (eng *Engine) TrackTask(ctx context.Context, req TrackRequest) (*domain.TrackedTask, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidTask, req.Kind)
	}
	if strings.TrimSpace(req.ExternalID) == "" {
		return nil, fmt.Errorf("%w: external id is required", ErrInvalidTask)
	}
	switch req.Kind {
	case domain.TaskReport:
		if _, err := wb.ParseReportFamily(req.Family); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidTask, err)
		}
	default:
		req.Family = ""
	}

	timeout := eng.taskTimeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	t := &domain.TrackedTask{
		Kind:       req.Kind,
		ExternalID: req.ExternalID,
		Family:     req.Family,
		Label:      req.Label,
		Deadline:   eng.nowFunc().Add(timeout),
	}
	if err := eng.store.TrackTask(ctx, t); err != nil {
		return nil, fmt.Errorf("tracking task: %w", err)
	}
	return t, nil
}

// PollTrackedTasks polls every pending task once, within the per-task
// budget, and records the result. Tasks past their deadline are marked
// timed out without another request. It returns the number of tasks that
// reached a terminal outcome.
func (eng *Engine) PollTrackedTasks(ctx context.Context) (int, error) {
	tasks, _, err := eng.store.ListTrackedTasks(ctx, &store.TaskQuery{
		PendingOnly: true,
		OrderBy:     "deadline",
		Limit:       500,
	})
	if err != nil {
		return 0, fmt.Errorf("listing pending tasks: %w", err)
	}
	if len(tasks) == 0 {
		eng.SyncStateMetrics(ctx)
		return 0, nil
	}

	var (
		mu       sync.Mutex
		alerts   []notify.TaskAlert
		finished int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(eng.taskConcurrency)

	for i := range tasks {
		t := &tasks[i]
		g.Go(func() error {
			done, err := eng.pollTask(gctx, t)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				metrics.TaskPollErrorsTotal.Inc()
				eng.log.Error("polling task failed",
					"task", t.ID,
					"kind", t.Kind,
					"external_id", t.ExternalID,
					"error", err,
				)
				return nil
			}
			if !done {
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			finished++
			if t.Outcome != domain.OutcomeSucceeded {
				alerts = append(alerts, taskAlert(t))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return finished, err
	}

	if eng.taskAlerts && len(alerts) > 0 {
		eng.sendTaskAlerts(ctx, alerts)
	}

	eng.SyncStateMetrics(ctx)
	return finished, nil
}

// pollTask runs one bounded wait on t and stores the result. It reports
// whether t reached a terminal outcome.
func (eng *Engine) pollTask(ctx context.Context, t *domain.TrackedTask) (bool, error) {
	now := eng.nowFunc()
	if t.Expired(now) {
		eng.finish(t, domain.OutcomeTimedOut, now)
		t.ErrorText = fmt.Sprintf("no terminal status before deadline %s", t.Deadline.Format(time.RFC3339))
		if err := eng.store.UpdateTrackedTask(ctx, t); err != nil {
			return false, fmt.Errorf("updating task %s: %w", t.ID, err)
		}
		return true, nil
	}

	budget := eng.taskBudget
	if !t.Deadline.IsZero() {
		budget = min(budget, t.Deadline.Sub(now))
	}
	poller, err := eng.poller(t, budget)
	if err != nil {
		return false, err
	}

	var last *wb.TaskSnapshot
	_, waitErr := poller.Wait(ctx, func(s *wb.TaskSnapshot) {
		last = s
		t.Polls++
	})

	var (
		failed   *wb.TaskFailedError
		timedOut *wb.TaskTimeoutError
		pollErr  error
	)
	switch {
	case waitErr == nil:
		eng.apply(t, last)
		eng.finish(t, domain.OutcomeSucceeded, eng.nowFunc())
	case errors.As(waitErr, &failed):
		eng.apply(t, last)
		eng.finish(t, domain.OutcomeFailed, eng.nowFunc())
		t.ErrorText = failureText(failed)
	case errors.As(waitErr, &timedOut):
		// Still running; the next run continues where this one stopped.
		eng.apply(t, timedOut.Last)
	default:
		if last == nil {
			return false, waitErr
		}
		// Keep what was read before the error.
		eng.apply(t, last)
		pollErr = waitErr
	}

	polled := eng.nowFunc()
	t.LastPolled = &polled
	if err := eng.store.UpdateTrackedTask(ctx, t); err != nil {
		return false, fmt.Errorf("updating task %s: %w", t.ID, err)
	}
	return !t.Pending(), pollErr
}

func (eng *Engine) poller(t *domain.TrackedTask, budget time.Duration) (*wb.Poller, error) {
	opts := append(append([]wb.PollerOption{}, eng.pollerOpts...), wb.WithTimeout(budget))
	switch t.Kind {
	case domain.TaskPriceUpload:
		return eng.client.Prices.NewUploadPoller(t.ExternalID, opts...), nil
	case domain.TaskReport:
		family, err := wb.ParseReportFamily(t.Family)
		if err != nil {
			return nil, err
		}
		return eng.client.Reports.NewReportPoller(family, t.ExternalID, opts...), nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidTask, t.Kind)
	}
}

func (eng *Engine) apply(t *domain.TrackedTask, s *wb.TaskSnapshot) {
	if s == nil {
		return
	}
	t.Status = s.Status
	t.Progress = s.ProgressPercent()
	t.ErrorsCount = max(s.ErrorsCount, len(s.Errors))
	if len(s.Raw) > 0 {
		t.Raw = s.Raw
	}
}

func (eng *Engine) finish(t *domain.TrackedTask, outcome domain.TaskOutcome, at time.Time) {
	t.Outcome = outcome
	t.CompletedAt = &at
	metrics.TasksFinishedTotal.WithLabelValues(string(t.Kind), string(outcome)).Inc()
	eng.log.Info("task finished",
		"task", t.ID,
		"kind", t.Kind,
		"external_id", t.ExternalID,
		"outcome", outcome,
		"status", t.Status,
	)
}

// failureText joins the error records of a failed task into one line.
func failureText(e *wb.TaskFailedError) string {
	if len(e.Errors) == 0 {
		return e.Error()
	}
	parts := make([]string, 0, len(e.Errors))
	for _, raw := range e.Errors {
		var rec struct {
			ErrorText string `json:"errorText"`
			Error     string `json:"error"`
		}
		if err := json.Unmarshal(raw, &rec); err == nil && (rec.ErrorText != "" || rec.Error != "") {
			parts = append(parts, rec.ErrorText+rec.Error)
			continue
		}
		parts = append(parts, string(raw))
	}
	text := strings.Join(parts, "; ")
	if len(text) > maxErrorText {
		n := maxErrorText
		for n > 0 && !utf8.RuneStart(text[n]) {
			n--
		}
		text = text[:n]
	}
	return text
}
