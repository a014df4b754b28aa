package wb

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Poll defaults.
const (
	DefaultTaskTimeout   = 300 * time.Second
	DefaultPollInterval  = 2 * time.Second
	DefaultBackoffFactor = 1.5
	DefaultMaxInterval   = 30 * time.Second
)

// TaskSnapshot is one read of a remote task's status.
type TaskSnapshot struct {
	TaskID         string            `json:"task_id"`
	Status         string            `json:"status"`
	TotalItems     int               `json:"total_items"`
	ProcessedItems int               `json:"processed_items"`
	ErrorsCount    int               `json:"errors_count"`
	Errors         []json.RawMessage `json:"errors,omitempty"`
	// Raw is the response the snapshot was built from.
	Raw json.RawMessage `json:"-"`
}

// ProgressPercent returns processed/total*100, or 0 when total is unknown.
func (s *TaskSnapshot) ProgressPercent() float64 {
	if s.TotalItems <= 0 {
		return 0
	}
	return float64(s.ProcessedItems) / float64(s.TotalItems) * 100
}

// StatusClassifier decides which status labels end a poll loop. Labels are
// compared case-insensitively. Anything that is neither success nor
// failure is treated as still running.
type StatusClassifier struct {
	Name    string
	Success []string
	Failure []string
}

// IsSuccess reports whether status is a successful terminal state.
func (c StatusClassifier) IsSuccess(status string) bool {
	return containsFold(c.Success, status)
}

// IsFailure reports whether status is a failed terminal state.
func (c StatusClassifier) IsFailure(status string) bool {
	return containsFold(c.Failure, status)
}

// IsTerminal reports whether status ends the poll loop.
func (c StatusClassifier) IsTerminal(status string) bool {
	return c.IsSuccess(status) || c.IsFailure(status)
}

func containsFold(set []string, s string) bool {
	return slices.ContainsFunc(set, func(v string) bool { return strings.EqualFold(v, s) })
}

// DefaultClassifier covers the generic vocabulary used across endpoint families.
var DefaultClassifier = StatusClassifier{
	Name:    "default",
	Success: []string{"completed", "done", "success"},
	Failure: []string{"error", "failed", "cancelled", "canceled"},
}

// ReportTaskClassifier covers generated-report tasks.
var ReportTaskClassifier = StatusClassifier{
	Name:    "report",
	Success: []string{"done", "completed", "success"},
	Failure: []string{"failed", "error", "purged", "canceled"},
}

// CheckFunc reads the current status of a remote task.
type CheckFunc func(ctx context.Context, taskID string) (*TaskSnapshot, error)

// ProgressFunc is called with every snapshot a poll loop reads.
type ProgressFunc func(*TaskSnapshot)

// PollerConfig controls a poll loop.
type PollerConfig struct {
	Timeout       time.Duration
	Interval      time.Duration
	BackoffFactor float64
	MaxInterval   time.Duration
	Classifier    StatusClassifier
}

// DefaultPollerConfig returns the default timeout, interval and backoff
// with DefaultClassifier.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Timeout:       DefaultTaskTimeout,
		Interval:      DefaultPollInterval,
		BackoffFactor: DefaultBackoffFactor,
		MaxInterval:   DefaultMaxInterval,
		Classifier:    DefaultClassifier,
	}
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithTimeout sets the total wait budget.
func WithTimeout(d time.Duration) PollerOption {
	return func(p *Poller) {
		p.cfg.Timeout = d
	}
}

// WithInterval sets the initial sleep between checks.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		p.cfg.Interval = d
	}
}

// WithBackoff sets the interval multiplier and its cap.
func WithBackoff(factor float64, maxInterval time.Duration) PollerOption {
	return func(p *Poller) {
		p.cfg.BackoffFactor = factor
		p.cfg.MaxInterval = maxInterval
	}
}

// WithClassifier sets the terminal status vocabulary.
func WithClassifier(c StatusClassifier) PollerOption {
	return func(p *Poller) {
		p.cfg.Classifier = c
	}
}

// WithPollerConfig replaces the whole configuration.
func WithPollerConfig(cfg PollerConfig) PollerOption {
	return func(p *Poller) {
		p.cfg = cfg
	}
}

// WithPollerClock overrides the clock and sleep used by the loop.
func WithPollerClock(now func() time.Time, sleep func(context.Context, time.Duration) error) PollerOption {
	return func(p *Poller) {
		p.nowFunc = now
		p.sleepFunc = sleep
	}
}

// WithPollerTracer sets the tracer used for the wait span.
func WithPollerTracer(t trace.Tracer) PollerOption {
	return func(p *Poller) {
		p.tracer = t
	}
}

// Poller waits for one remote task. It is owned by a single caller and is
// not safe for concurrent use.
type Poller struct {
	taskID string
	check  CheckFunc
	cfg    PollerConfig

	nowFunc   func() time.Time
	sleepFunc func(context.Context, time.Duration) error
	tracer    trace.Tracer
}

// NewPoller creates a poller for taskID. Nothing is sent until Wait.
func NewPoller(taskID string, check CheckFunc, opts ...PollerOption) *Poller {
	p := &Poller{
		taskID:    taskID,
		check:     check,
		cfg:       DefaultPollerConfig(),
		nowFunc:   time.Now,
		sleepFunc: sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer(tracerName)
	}
	if p.cfg.BackoffFactor < 1 {
		p.cfg.BackoffFactor = 1
	}
	if p.cfg.MaxInterval <= 0 {
		p.cfg.MaxInterval = p.cfg.Interval
	}
	return p
}

// TaskID returns the task being waited on.
func (p *Poller) TaskID() string {
	return p.taskID
}

// Config returns the poller's configuration.
func (p *Poller) Config() PollerConfig {
	return p.cfg
}

// Wait polls until the task reaches a terminal state. It returns the
// terminal snapshot on success, a *TaskFailedError on failure, or a
// *TaskTimeoutError once the timeout has elapsed. The first check always
// runs. Errors from the check function are returned unchanged. ctx
// cancellation stops the loop; the remote task is unaffected.
func (p *Poller) Wait(ctx context.Context, onProgress ProgressFunc) (*TaskSnapshot, error) {
	ctx, span := p.tracer.Start(ctx, "wb task wait", trace.WithAttributes(
		attribute.String("wb.task_id", p.taskID),
		attribute.String("wb.task_family", p.cfg.Classifier.Name),
	))
	defer span.End()

	start := p.nowFunc()
	interval := p.cfg.Interval
	var last *TaskSnapshot

	for tick := 0; ; tick++ {
		elapsed := p.nowFunc().Sub(start)
		if tick > 0 && elapsed >= p.cfg.Timeout {
			span.SetAttributes(attribute.Int("wb.task_ticks", tick))
			return nil, &TaskTimeoutError{TaskID: p.taskID, Elapsed: elapsed, Last: last}
		}

		snap, err := p.check(ctx, p.taskID)
		if err != nil {
			return nil, err
		}
		if snap == nil {
			return nil, fmt.Errorf("checking task %s: empty status", p.taskID)
		}
		last = snap

		if onProgress != nil {
			onProgress(snap)
		}

		switch {
		case p.cfg.Classifier.IsSuccess(snap.Status):
			span.SetAttributes(attribute.Int("wb.task_ticks", tick+1), attribute.String("wb.task_status", snap.Status))
			return snap, nil
		case p.cfg.Classifier.IsFailure(snap.Status):
			span.SetAttributes(attribute.Int("wb.task_ticks", tick+1), attribute.String("wb.task_status", snap.Status))
			return nil, &TaskFailedError{TaskID: p.taskID, Status: snap.Status, Errors: snap.Errors}
		}

		remaining := p.cfg.Timeout - p.nowFunc().Sub(start)
		sleep := min(interval, p.cfg.MaxInterval, max(remaining, 0))
		if err := p.sleepFunc(ctx, sleep); err != nil {
			return nil, fmt.Errorf("waiting for task %s: %w", p.taskID, err)
		}
		interval = min(time.Duration(float64(interval)*p.cfg.BackoffFactor), p.cfg.MaxInterval)
	}
}

// WaitForTask creates a poller and waits on it immediately.
func WaitForTask(
	ctx context.Context,
	taskID string,
	check CheckFunc,
	onProgress ProgressFunc,
	opts ...PollerOption,
) (*TaskSnapshot, error) {
	return NewPoller(taskID, check, opts...).Wait(ctx, onProgress)
}
