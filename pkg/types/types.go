// Package domain defines the core business types for the seller tracker.
package domain

import (
	"encoding/json"
	"slices"
	"time"
)

// TaskKind identifies which marketplace endpoint family a tracked task
// belongs to.
type TaskKind string

// Task kind constants.
const (
	TaskPriceUpload TaskKind = "price_upload"
	TaskReport      TaskKind = "report"
)

// TaskKinds returns every supported task kind.
func TaskKinds() []TaskKind {
	return []TaskKind{TaskPriceUpload, TaskReport}
}

// Valid reports whether k is a known task kind.
func (k TaskKind) Valid() bool {
	return slices.Contains(TaskKinds(), k)
}

// TaskOutcome is the final result of a tracked task.
type TaskOutcome string

// Task outcome constants. An empty outcome means the task is still pending.
const (
	OutcomePending   TaskOutcome = ""
	OutcomeSucceeded TaskOutcome = "succeeded"
	OutcomeFailed    TaskOutcome = "failed"
	OutcomeTimedOut  TaskOutcome = "timed_out"
)

// TrackedTask is a remote asynchronous task the service polls until it
// reaches a terminal state.
type TrackedTask struct {
	ID         string   `json:"id"                db:"id"`
	Kind       TaskKind `json:"kind"              db:"kind"`
	ExternalID string   `json:"external_id"       db:"external_id"`
	// Family is the report family for report tasks.
	Family string `json:"family,omitempty" db:"family"`
	Label  string `json:"label,omitempty"  db:"label"`

	Status      string          `json:"status"               db:"status"`
	Outcome     TaskOutcome     `json:"outcome,omitempty"    db:"outcome"`
	Progress    float64         `json:"progress"             db:"progress"`
	ErrorsCount int             `json:"errors_count"         db:"errors_count"`
	ErrorText   string          `json:"error_text,omitempty" db:"error_text"`
	Polls       int             `json:"polls"                db:"polls"`
	Raw         json.RawMessage `json:"raw,omitempty"        db:"raw"`

	Deadline    time.Time  `json:"deadline"               db:"deadline"`
	LastPolled  *time.Time `json:"last_polled,omitempty"  db:"last_polled"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"             db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"             db:"updated_at"`
}

// Pending reports whether the task has not reached a terminal outcome.
func (t *TrackedTask) Pending() bool {
	return t.Outcome == OutcomePending
}

// Expired reports whether the task's deadline has passed at now.
func (t *TrackedTask) Expired(now time.Time) bool {
	return !t.Deadline.IsZero() && !now.Before(t.Deadline)
}

// BalanceSnapshot is the seller account balance at one point in time.
type BalanceSnapshot struct {
	ID          string    `json:"id"           db:"id"`
	Currency    string    `json:"currency"     db:"currency"`
	Current     float64   `json:"current"      db:"current"`
	ForWithdraw float64   `json:"for_withdraw" db:"for_withdraw"`
	CapturedAt  time.Time `json:"captured_at"  db:"captured_at"`
}

// Blocked returns the part of the balance that cannot be withdrawn.
func (b *BalanceSnapshot) Blocked() float64 {
	return b.Current - b.ForWithdraw
}

// LimiterSnapshot records the state of one category's rate limiter.
type LimiterSnapshot struct {
	Category   string    `json:"category"    db:"category"`
	Remaining  int       `json:"remaining"   db:"remaining"`
	Limit      int       `json:"limit"       db:"limit_value"`
	ResetAt    time.Time `json:"reset_at"    db:"reset_at"`
	CapturedAt time.Time `json:"captured_at" db:"captured_at"`
}

// Job run status constants.
const (
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
	JobStatusCrashed   = "crashed"
)

// JobRun records a single execution of a scheduled job.
type JobRun struct {
	ID           string     `json:"id"                      db:"id"`
	JobName      string     `json:"job_name"                db:"job_name"`
	StartedAt    time.Time  `json:"started_at"              db:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"  db:"completed_at"`
	Status       string     `json:"status"                  db:"status"`
	ErrorText    string     `json:"error_text,omitempty"    db:"error_text"`
	RowsAffected *int       `json:"rows_affected,omitempty" db:"rows_affected"`
}

// SystemState is an aggregate view of the tracker used by the status
// endpoints and the metrics sync.
type SystemState struct {
	TasksPending   int        `json:"tasks_pending"`
	TasksSucceeded int        `json:"tasks_succeeded"`
	TasksFailed    int        `json:"tasks_failed"`
	TasksTimedOut  int        `json:"tasks_timed_out"`
	BalanceAt      *time.Time `json:"balance_at,omitempty"`

	// ExhaustedCategories lists rate-limit categories with no tokens left.
	// It is filled from the live limiters, not the store.
	ExhaustedCategories []string `json:"exhausted_categories,omitempty"`
}
