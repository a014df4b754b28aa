package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/donaldgifford/wb-seller-tracker/internal/metrics"
	"github.com/donaldgifford/wb-seller-tracker/internal/notify"
	"github.com/donaldgifford/wb-seller-tracker/internal/store"
	"github.com/donaldgifford/wb-seller-tracker/pkg/wb"
	domain "github.com/donaldgifford/wb-seller-tracker/pkg/types"
)

const (
	defaultTaskBudget      = 20 * time.Second
	defaultTaskConcurrency = 4
	defaultTaskTimeout     = wb.DefaultTaskTimeout
)

// Engine runs the tracker's periodic work against the marketplace: balance
// snapshots, tracked task polling and limiter snapshots.
type Engine struct {
	store    store.Store
	client   *wb.Client
	notifier notify.Notifier
	log      *slog.Logger

	taskBudget      time.Duration
	taskConcurrency int
	taskTimeout     time.Duration
	pollerOpts      []wb.PollerOption

	lowBalance float64
	taskAlerts bool

	nowFunc func() time.Time
}

// NewEngine creates a new Engine with injected dependencies.
func NewEngine(
	s store.Store,
	c *wb.Client,
	n notify.Notifier,
	opts ...EngineOption,
) *Engine {
	eng := &Engine{
		store:           s,
		client:          c,
		notifier:        n,
		log:             slog.Default(),
		taskBudget:      defaultTaskBudget,
		taskConcurrency: defaultTaskConcurrency,
		taskTimeout:     defaultTaskTimeout,
		taskAlerts:      true,
		nowFunc:         time.Now,
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// WithTaskBudget bounds how long one run may wait on a single task.
func WithTaskBudget(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.taskBudget = d
		}
	}
}

// WithTaskConcurrency sets how many tasks are polled in parallel.
func WithTaskConcurrency(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.taskConcurrency = n
		}
	}
}

// WithTaskTimeout sets the deadline given to newly tracked tasks.
func WithTaskTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.taskTimeout = d
		}
	}
}

// WithPollerOptions adds options to every poller the engine creates. The
// per-run budget is applied after them.
func WithPollerOptions(opts ...wb.PollerOption) EngineOption {
	return func(e *Engine) {
		e.pollerOpts = append(e.pollerOpts, opts...)
	}
}

// WithLowBalanceThreshold enables low-balance alerts below threshold.
// Zero disables them.
func WithLowBalanceThreshold(threshold float64) EngineOption {
	return func(e *Engine) {
		e.lowBalance = threshold
	}
}

// WithTaskAlerts toggles notifications for failed and timed out tasks.
func WithTaskAlerts(enabled bool) EngineOption {
	return func(e *Engine) {
		e.taskAlerts = enabled
	}
}

// WithNowFunc overrides the clock for testing.
func WithNowFunc(f func() time.Time) EngineOption {
	return func(e *Engine) {
		e.nowFunc = f
	}
}

// Client returns the marketplace client the engine polls with.
func (eng *Engine) Client() *wb.Client {
	return eng.client
}

// SyncBalance reads the seller balance, stores a snapshot and alerts when
// it drops below the configured threshold.
func (eng *Engine) SyncBalance(ctx context.Context) (*domain.BalanceSnapshot, error) {
	bal, err := eng.client.Finance.Balance(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading balance: %w", err)
	}

	snap := &domain.BalanceSnapshot{
		Currency:    bal.Currency,
		Current:     bal.Current,
		ForWithdraw: bal.ForWithdraw,
		CapturedAt:  eng.nowFunc(),
	}
	if err := eng.store.SaveBalanceSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("saving balance snapshot: %w", err)
	}

	metrics.BalanceCurrent.Set(snap.Current)
	metrics.BalanceForWithdraw.Set(snap.ForWithdraw)

	if eng.lowBalance > 0 && snap.Current < eng.lowBalance {
		eng.log.Warn("balance below threshold",
			"current", snap.Current,
			"threshold", eng.lowBalance,
		)
		if err := eng.notifier.SendBalanceAlert(ctx, &notify.BalanceAlert{
			Current:     snap.Current,
			ForWithdraw: snap.ForWithdraw,
			Threshold:   eng.lowBalance,
			Currency:    snap.Currency,
			CapturedAt:  snap.CapturedAt,
		}); err != nil {
			metrics.NotificationFailuresTotal.Inc()
			eng.log.Error("sending balance alert failed", "error", err)
		} else {
			metrics.AlertsFiredTotal.WithLabelValues("low_balance").Inc()
		}
	}

	return snap, nil
}

// LimiterSnapshots returns the current state of every category limiter,
// sorted by category.
func (eng *Engine) LimiterSnapshots() []domain.LimiterSnapshot {
	now := eng.nowFunc()
	states := eng.client.LimiterStates()

	out := make([]domain.LimiterSnapshot, 0, len(states))
	for cat, st := range states {
		out = append(out, domain.LimiterSnapshot{
			Category:   string(cat),
			Remaining:  st.Remaining,
			Limit:      st.Limit,
			ResetAt:    st.ResetAt,
			CapturedAt: now,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// SnapshotLimits stores the limiter state of every category and updates the
// limiter gauges. It returns the number of rows written.
func (eng *Engine) SnapshotLimits(ctx context.Context) (int, error) {
	snaps := eng.LimiterSnapshots()
	for i := range snaps {
		metrics.WBLimiterRemaining.WithLabelValues(snaps[i].Category).Set(float64(snaps[i].Remaining))
		metrics.WBLimiterCapacity.WithLabelValues(snaps[i].Category).Set(float64(snaps[i].Limit))
	}
	if err := eng.store.SaveLimiterSnapshots(ctx, snaps); err != nil {
		return 0, fmt.Errorf("saving limiter snapshots: %w", err)
	}
	return len(snaps), nil
}

// SyncStateMetrics refreshes gauges derived from stored state.
func (eng *Engine) SyncStateMetrics(ctx context.Context) {
	state, err := eng.store.GetSystemState(ctx)
	if err != nil {
		eng.log.Warn("reading system state failed", "error", err)
		return
	}
	metrics.TasksTracked.Set(float64(state.TasksPending))
}
