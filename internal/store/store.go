// Package store defines the datastore abstraction for wb-seller-tracker.
// All business logic depends on the Store interface, never on concrete
// implementations. This enables mock-based testing without a running database.
package store

import (
	"context"
	"errors"
	"time"

	domain "github.com/donaldgifford/wb-seller-tracker/pkg/types"
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("not found")

// TaskQuery defines optional filters for tracked task queries.
type TaskQuery struct {
	Kind        *domain.TaskKind
	Outcome     *domain.TaskOutcome
	PendingOnly bool
	Limit       int // default 50
	Offset      int
	OrderBy     string // "created_at", "updated_at", "deadline"
}

// Store defines all data access operations for wb-seller-tracker.
type Store interface {
	// Balance
	SaveBalanceSnapshot(ctx context.Context, b *domain.BalanceSnapshot) error
	LatestBalance(ctx context.Context) (*domain.BalanceSnapshot, error)
	ListBalanceSnapshots(ctx context.Context, since time.Time, limit int) ([]domain.BalanceSnapshot, error)

	// Tracked tasks
	TrackTask(ctx context.Context, t *domain.TrackedTask) error
	GetTrackedTask(ctx context.Context, id string) (*domain.TrackedTask, error)
	ListTrackedTasks(ctx context.Context, q *TaskQuery) ([]domain.TrackedTask, int, error)
	UpdateTrackedTask(ctx context.Context, t *domain.TrackedTask) error

	// Limiter snapshots
	SaveLimiterSnapshots(ctx context.Context, snaps []domain.LimiterSnapshot) error
	ListLimiterSnapshots(ctx context.Context, category string, limit int) ([]domain.LimiterSnapshot, error)

	GetSystemState(ctx context.Context) (*domain.SystemState, error)

	// Scheduler
	InsertJobRun(ctx context.Context, jobName string) (id string, err error)
	CompleteJobRun(ctx context.Context, id string, status string, errText string, rowsAffected int) error
	ListJobRuns(ctx context.Context, jobName string, limit int) ([]domain.JobRun, error)
	ListLatestJobRuns(ctx context.Context) ([]domain.JobRun, error)
	RecoverStaleJobRuns(ctx context.Context, olderThan time.Duration) (int, error)
	AcquireSchedulerLock(ctx context.Context, jobName string, holder string, ttl time.Duration) (bool, error)
	ReleaseSchedulerLock(ctx context.Context, jobName string, holder string) error

	// Migrations
	Migrate(ctx context.Context) error

	// Health
	Ping(ctx context.Context) error
}
