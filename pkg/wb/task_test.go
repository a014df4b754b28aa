package wb_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/wb-seller-tracker/pkg/wb"
)

// scriptedCheck returns a CheckFunc that reports statuses in order and
// repeats the last one forever.
func scriptedCheck(statuses ...string) (wb.CheckFunc, *int) {
	calls := 0
	return func(_ context.Context, taskID string) (*wb.TaskSnapshot, error) {
		st := statuses[min(calls, len(statuses)-1)]
		calls++
		return &wb.TaskSnapshot{
			TaskID:         taskID,
			Status:         st,
			TotalItems:     10,
			ProcessedItems: min(calls*4, 10),
		}, nil
	}, &calls
}

func TestPoller_Wait(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		statuses   []string
		opts       []wb.PollerOption
		wantStatus string
		wantCalls  int
		wantSleeps []time.Duration
		wantErr    error
	}{
		{
			name:       "terminal on first check",
			statuses:   []string{"completed"},
			wantStatus: "completed",
			wantCalls:  1,
		},
		{
			name:       "succeeds after backoff",
			statuses:   []string{"processing", "processing", "done"},
			wantStatus: "done",
			wantCalls:  3,
			wantSleeps: []time.Duration{2 * time.Second, 3 * time.Second},
		},
		{
			name:       "status match is case insensitive",
			statuses:   []string{"Processing", "COMPLETED"},
			wantStatus: "COMPLETED",
			wantCalls:  2,
			wantSleeps: []time.Duration{2 * time.Second},
		},
		{
			name:       "interval is capped",
			statuses:   []string{"pending", "pending", "pending", "success"},
			opts:       []wb.PollerOption{wb.WithInterval(10 * time.Second), wb.WithBackoff(2, 15*time.Second)},
			wantStatus: "success",
			wantCalls:  4,
			wantSleeps: []time.Duration{10 * time.Second, 15 * time.Second, 15 * time.Second},
		},
		{
			name:       "factor below one keeps interval fixed",
			statuses:   []string{"pending", "pending", "done"},
			opts:       []wb.PollerOption{wb.WithInterval(time.Second), wb.WithBackoff(0.5, time.Minute)},
			wantStatus: "done",
			wantCalls:  3,
			wantSleeps: []time.Duration{time.Second, time.Second},
		},
		{
			name:       "failure status",
			statuses:   []string{"processing", "failed"},
			wantCalls:  2,
			wantSleeps: []time.Duration{2 * time.Second},
			wantErr:    wb.ErrTaskFailed,
		},
		{
			name:       "timeout bounds the last sleep",
			statuses:   []string{"processing"},
			opts:       []wb.PollerOption{wb.WithTimeout(5 * time.Second)},
			wantCalls:  2,
			wantSleeps: []time.Duration{2 * time.Second, 3 * time.Second},
			wantErr:    wb.ErrTaskTimeout,
		},
		{
			name:       "zero timeout still checks once",
			statuses:   []string{"processing"},
			opts:       []wb.PollerOption{wb.WithTimeout(0)},
			wantCalls:  1,
			wantSleeps: []time.Duration{0},
			wantErr:    wb.ErrTaskTimeout,
		},
		{
			name:       "custom classifier",
			statuses:   []string{"3", "7"},
			opts:       []wb.PollerOption{wb.WithClassifier(wb.StatusClassifier{Name: "numeric", Success: []string{"7"}})},
			wantStatus: "7",
			wantCalls:  2,
			wantSleeps: []time.Duration{2 * time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			clock := newFakeClock()
			check, calls := scriptedCheck(tt.statuses...)

			var (
				progress  []string
				processed []int
			)
			opts := append([]wb.PollerOption{wb.WithPollerClock(clock.Now, clock.Sleep)}, tt.opts...)
			snap, err := wb.NewPoller("42", check, opts...).Wait(context.Background(), func(s *wb.TaskSnapshot) {
				progress = append(progress, s.Status)
				processed = append(processed, s.ProcessedItems)
			})

			assert.Equal(t, tt.wantCalls, *calls)
			assert.Len(t, progress, tt.wantCalls)
			assert.IsNonDecreasing(t, processed)
			assert.Equal(t, tt.wantSleeps, clock.Sleeps())

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, snap)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, snap.Status)
			assert.Equal(t, "42", snap.TaskID)
		})
	}
}

func TestPoller_TimeoutCarriesLastSnapshot(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	check, _ := scriptedCheck("processing")

	_, err := wb.WaitForTask(context.Background(), "9", check, nil,
		wb.WithPollerClock(clock.Now, clock.Sleep),
		wb.WithTimeout(3*time.Second),
		wb.WithInterval(time.Second),
		wb.WithBackoff(1, time.Second),
	)

	var timeoutErr *wb.TaskTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "9", timeoutErr.TaskID)
	assert.Equal(t, 3*time.Second, timeoutErr.Elapsed)
	require.NotNil(t, timeoutErr.Last)
	assert.Equal(t, "processing", timeoutErr.Last.Status)
}

func TestPoller_FailureCarriesErrors(t *testing.T) {
	t.Parallel()

	records := []json.RawMessage{json.RawMessage(`{"nmID":1,"errorText":"price below minimum"}`)}
	check := func(_ context.Context, id string) (*wb.TaskSnapshot, error) {
		return &wb.TaskSnapshot{TaskID: id, Status: "error", ErrorsCount: 1, Errors: records}, nil
	}

	_, err := wb.NewPoller("5", check).Wait(context.Background(), nil)

	var failed *wb.TaskFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "error", failed.Status)
	assert.Equal(t, records, failed.Errors)
}

func TestPoller_CheckErrorIsReturnedUnchanged(t *testing.T) {
	t.Parallel()

	apiErr := &wb.APIError{Kind: wb.KindServer, StatusCode: 502, Message: "bad gateway"}
	check := func(context.Context, string) (*wb.TaskSnapshot, error) {
		return nil, apiErr
	}

	_, err := wb.NewPoller("1", check).Wait(context.Background(), nil)
	assert.Same(t, apiErr, err)
}

func TestPoller_NilSnapshot(t *testing.T) {
	t.Parallel()

	check := func(context.Context, string) (*wb.TaskSnapshot, error) {
		return nil, nil
	}

	_, err := wb.NewPoller("1", check).Wait(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty status")
}

func TestPoller_ContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	check := func(_ context.Context, id string) (*wb.TaskSnapshot, error) {
		cancel()
		return &wb.TaskSnapshot{TaskID: id, Status: "processing"}, nil
	}

	_, err := wb.NewPoller("1", check, wb.WithInterval(time.Hour)).Wait(ctx, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.NotErrorIs(t, err, wb.ErrTaskTimeout)
}

func TestNewPoller_Defaults(t *testing.T) {
	t.Parallel()

	p := wb.NewPoller("abc", nil)
	cfg := p.Config()

	assert.Equal(t, "abc", p.TaskID())
	assert.Equal(t, 300*time.Second, cfg.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Interval)
	assert.InDelta(t, 1.5, cfg.BackoffFactor, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.MaxInterval)
	assert.Equal(t, "default", cfg.Classifier.Name)
}

func TestStatusClassifiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		classifier wb.StatusClassifier
		status     string
		success    bool
		failure    bool
	}{
		{"default completed", wb.DefaultClassifier, "completed", true, false},
		{"default cancelled", wb.DefaultClassifier, "cancelled", false, true},
		{"default running", wb.DefaultClassifier, "in_progress", false, false},
		{"report done", wb.ReportTaskClassifier, "done", true, false},
		{"report failed", wb.ReportTaskClassifier, "failed", false, true},
		{"report processing", wb.ReportTaskClassifier, "processing", false, false},
		{"prices with errors succeeds", wb.PriceTaskClassifier, "completed_with_errors", true, false},
		{"prices canceled", wb.PriceTaskClassifier, "canceled", false, true},
		{"prices pending", wb.PriceTaskClassifier, "pending", false, false},
		{"unlisted label keeps polling", wb.StatusClassifier{Name: "custom", Success: []string{"ok"}, Failure: []string{"bad"}}, "queued_for_review", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.success, tt.classifier.IsSuccess(tt.status))
			assert.Equal(t, tt.failure, tt.classifier.IsFailure(tt.status))
			assert.Equal(t, tt.success || tt.failure, tt.classifier.IsTerminal(tt.status))
		})
	}
}

func TestTaskSnapshot_ProgressPercent(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 40.0, (&wb.TaskSnapshot{TotalItems: 10, ProcessedItems: 4}).ProgressPercent(), 1e-9)
	assert.Zero(t, (&wb.TaskSnapshot{ProcessedItems: 4}).ProgressPercent())
}
