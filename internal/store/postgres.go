package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/donaldgifford/wb-seller-tracker/pkg/types"
)

const defaultPoolSize = 10

// PostgresStore implements Store using pgxpool (connection-pooled PostgreSQL).
//
// PostgresStore methods require live Postgres and are covered by the
// integration tests.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*pgxpool.Config)

// WithPoolSize sets the maximum number of pooled connections.
func WithPoolSize(n int) PostgresOption {
	return func(c *pgxpool.Config) {
		if n > 0 {
			c.MaxConns = int32(n) //nolint:gosec // pool sizes are small
		}
	}
}

// NewPostgresStore creates a new PostgresStore with connection pooling.
func NewPostgresStore(ctx context.Context, connString string, opts ...PostgresOption) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	cfg.MaxConns = defaultPoolSize
	for _, opt := range opts {
		opt(cfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// SaveBalanceSnapshot stores b and fills its ID. A zero CapturedAt is
// set to now.
func (s *PostgresStore) SaveBalanceSnapshot(ctx context.Context, b *domain.BalanceSnapshot) error {
	if b.CapturedAt.IsZero() {
		b.CapturedAt = time.Now().UTC()
	}
	if b.Currency == "" {
		b.Currency = "RUB"
	}
	args := pgx.NamedArgs{
		"currency":     b.Currency,
		"current":      b.Current,
		"for_withdraw": b.ForWithdraw,
		"captured_at":  b.CapturedAt,
	}
	if err := s.pool.QueryRow(ctx, querySaveBalanceSnapshot, args).Scan(&b.ID, &b.CapturedAt); err != nil {
		return fmt.Errorf("saving balance snapshot: %w", err)
	}
	return nil
}

// LatestBalance returns the most recent balance snapshot, or ErrNotFound.
func (s *PostgresStore) LatestBalance(ctx context.Context) (*domain.BalanceSnapshot, error) {
	b := &domain.BalanceSnapshot{}
	err := scanBalance(s.pool.QueryRow(ctx, queryLatestBalance), b)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest balance: %w", err)
	}
	return b, nil
}

// ListBalanceSnapshots returns snapshots captured at or after since,
// newest first.
func (s *PostgresStore) ListBalanceSnapshots(
	ctx context.Context,
	since time.Time,
	limit int,
) ([]domain.BalanceSnapshot, error) {
	rows, err := s.pool.Query(ctx, queryListBalanceSnapshots, since, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying balance snapshots: %w", err)
	}
	defer rows.Close()

	var out []domain.BalanceSnapshot
	for rows.Next() {
		var b domain.BalanceSnapshot
		if err := scanBalance(rows, &b); err != nil {
			return nil, fmt.Errorf("scanning balance snapshot: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// TrackTask inserts a task to poll. Tracking the same external task
// again refreshes its label and deadline and keeps its progress.
func (s *PostgresStore) TrackTask(ctx context.Context, t *domain.TrackedTask) error {
	args := pgx.NamedArgs{
		"kind":        string(t.Kind),
		"external_id": t.ExternalID,
		"family":      t.Family,
		"label":       t.Label,
		"status":      t.Status,
		"deadline":    t.Deadline,
	}
	var outcome string
	if err := s.pool.QueryRow(ctx, queryTrackTask, args).Scan(
		&t.ID, &outcome, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return fmt.Errorf("tracking task: %w", err)
	}
	t.Outcome = domain.TaskOutcome(outcome)
	return nil
}

// GetTrackedTask returns a task by id, or ErrNotFound.
func (s *PostgresStore) GetTrackedTask(ctx context.Context, id string) (*domain.TrackedTask, error) {
	t := &domain.TrackedTask{}
	err := scanTask(s.pool.QueryRow(ctx, queryGetTrackedTask, id), t)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying tracked task: %w", err)
	}
	return t, nil
}

// ListTrackedTasks queries tasks with optional filters, returning results
// and total count.
func (s *PostgresStore) ListTrackedTasks(
	ctx context.Context,
	q *TaskQuery,
) ([]domain.TrackedTask, int, error) {
	if q == nil {
		q = &TaskQuery{}
	}
	dataSQL, countSQL, args := q.ToSQL()

	var total int
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting tracked tasks: %w", err)
	}

	rows, err := s.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying tracked tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.TrackedTask
	for rows.Next() {
		var t domain.TrackedTask
		if err := scanTask(rows, &t); err != nil {
			return nil, 0, fmt.Errorf("scanning tracked task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating tracked tasks: %w", err)
	}

	return tasks, total, nil
}

// UpdateTrackedTask writes the polling state of t.
func (s *PostgresStore) UpdateTrackedTask(ctx context.Context, t *domain.TrackedTask) error {
	args := pgx.NamedArgs{
		"id":           t.ID,
		"status":       t.Status,
		"outcome":      string(t.Outcome),
		"progress":     t.Progress,
		"errors_count": t.ErrorsCount,
		"error_text":   t.ErrorText,
		"polls":        t.Polls,
		"raw":          nullableJSON(t.Raw),
		"last_polled":  t.LastPolled,
		"completed_at": t.CompletedAt,
	}
	err := s.pool.QueryRow(ctx, queryUpdateTrackedTask, args).Scan(&t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("updating tracked task: %w", err)
	}
	return nil
}

// SaveLimiterSnapshots stores snaps in one batch and prunes week-old rows.
func (s *PostgresStore) SaveLimiterSnapshots(ctx context.Context, snaps []domain.LimiterSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, sn := range snaps {
		batch.Queue(querySaveLimiterSnapshot, sn.Category, sn.Remaining, sn.Limit, sn.ResetAt, sn.CapturedAt)
	}
	batch.Queue(queryDeleteOldLimiterSnapshots)
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("saving limiter snapshots: %w", err)
	}
	return nil
}

// ListLimiterSnapshots returns recent snapshots, newest first. An empty
// category returns every category.
func (s *PostgresStore) ListLimiterSnapshots(
	ctx context.Context,
	category string,
	limit int,
) ([]domain.LimiterSnapshot, error) {
	rows, err := s.pool.Query(ctx, queryListLimiterSnapshots, category, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying limiter snapshots: %w", err)
	}
	defer rows.Close()

	var out []domain.LimiterSnapshot
	for rows.Next() {
		var sn domain.LimiterSnapshot
		if err := rows.Scan(&sn.Category, &sn.Remaining, &sn.Limit, &sn.ResetAt, &sn.CapturedAt); err != nil {
			return nil, fmt.Errorf("scanning limiter snapshot: %w", err)
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}

// GetSystemState returns task counts by outcome and the time of the last
// balance snapshot in a single round trip.
func (s *PostgresStore) GetSystemState(ctx context.Context) (*domain.SystemState, error) {
	st := &domain.SystemState{}
	if err := s.pool.QueryRow(ctx, queryGetSystemState).Scan(
		&st.TasksPending, &st.TasksSucceeded, &st.TasksFailed, &st.TasksTimedOut, &st.BalanceAt,
	); err != nil {
		return nil, fmt.Errorf("querying system state: %w", err)
	}
	return st, nil
}

// InsertJobRun records the start of a scheduled job and returns its UUID.
func (s *PostgresStore) InsertJobRun(ctx context.Context, jobName string) (string, error) {
	var id string
	if err := s.pool.QueryRow(ctx, queryInsertJobRun, jobName).Scan(&id); err != nil {
		return "", fmt.Errorf("inserting job run: %w", err)
	}
	return id, nil
}

// CompleteJobRun marks a job run as finished with the given status and metadata.
func (s *PostgresStore) CompleteJobRun(
	ctx context.Context,
	id string,
	status string,
	errText string,
	rowsAffected int,
) error {
	_, err := s.pool.Exec(ctx, queryCompleteJobRun, id, status, errText, rowsAffected)
	if err != nil {
		return fmt.Errorf("completing job run: %w", err)
	}
	return nil
}

// ListJobRuns returns the most recent runs for a specific job, newest first.
func (s *PostgresStore) ListJobRuns(
	ctx context.Context,
	jobName string,
	limit int,
) ([]domain.JobRun, error) {
	rows, err := s.pool.Query(ctx, queryListJobRuns, jobName, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying job runs: %w", err)
	}
	defer rows.Close()

	return scanJobRuns(rows)
}

// ListLatestJobRuns returns the single most recent run for each distinct job name.
func (s *PostgresStore) ListLatestJobRuns(ctx context.Context) ([]domain.JobRun, error) {
	rows, err := s.pool.Query(ctx, queryListLatestJobRuns)
	if err != nil {
		return nil, fmt.Errorf("querying latest job runs: %w", err)
	}
	defer rows.Close()

	return scanJobRuns(rows)
}

// RecoverStaleJobRuns marks any 'running' job rows older than olderThan as 'crashed',
// then deletes all rows older than 30 days. Returns the number of rows marked as crashed.
func (s *PostgresStore) RecoverStaleJobRuns(
	ctx context.Context,
	olderThan time.Duration,
) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	tag, err := s.pool.Exec(ctx, queryMarkStaleJobRunsCrashed, cutoff)
	if err != nil {
		return 0, fmt.Errorf("marking stale job runs crashed: %w", err)
	}
	affected := int(tag.RowsAffected())

	if _, err := s.pool.Exec(ctx, queryDeleteOldJobRuns); err != nil {
		return affected, fmt.Errorf("deleting old job runs: %w", err)
	}

	return affected, nil
}

// AcquireSchedulerLock attempts to acquire a distributed lock for the given job.
// Returns true if the lock was acquired, false if another holder already owns it.
func (s *PostgresStore) AcquireSchedulerLock(
	ctx context.Context,
	jobName string,
	holder string,
	ttl time.Duration,
) (bool, error) {
	expiresAt := time.Now().Add(ttl)

	var gotName string
	err := s.pool.QueryRow(ctx, queryAcquireSchedulerLock, jobName, holder, expiresAt).Scan(&gotName)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil // lock held by another; conflict not replaced
	}
	if err != nil {
		return false, fmt.Errorf("acquiring scheduler lock: %w", err)
	}

	return true, nil
}

// ReleaseSchedulerLock deletes the lock row for the given job and holder.
func (s *PostgresStore) ReleaseSchedulerLock(
	ctx context.Context,
	jobName string,
	holder string,
) error {
	_, err := s.pool.Exec(ctx, queryReleaseSchedulerLock, jobName, holder)
	if err != nil {
		return fmt.Errorf("releasing scheduler lock: %w", err)
	}
	return nil
}

// scanJobRuns scans rows from a job_runs query into a slice.
func scanJobRuns(rows pgx.Rows) ([]domain.JobRun, error) {
	var runs []domain.JobRun
	for rows.Next() {
		var r domain.JobRun
		if err := rows.Scan(
			&r.ID, &r.JobName, &r.StartedAt, &r.CompletedAt,
			&r.Status, &r.ErrorText, &r.RowsAffected,
		); err != nil {
			return nil, fmt.Errorf("scanning job run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// scannable abstracts pgx.Row and pgx.Rows for reuse.
type scannable interface {
	Scan(dest ...any) error
}

func scanBalance(row scannable, b *domain.BalanceSnapshot) error {
	return row.Scan(&b.ID, &b.Currency, &b.Current, &b.ForWithdraw, &b.CapturedAt)
}

func scanTask(row scannable, t *domain.TrackedTask) error {
	var kind, outcome string
	var raw []byte
	if err := row.Scan(
		&t.ID, &kind, &t.ExternalID, &t.Family, &t.Label,
		&t.Status, &outcome, &t.Progress, &t.ErrorsCount, &t.ErrorText, &t.Polls, &raw,
		&t.Deadline, &t.LastPolled, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return err
	}
	t.Kind = domain.TaskKind(kind)
	t.Outcome = domain.TaskOutcome(outcome)
	t.Raw = raw
	return nil
}

// nullableJSON maps an empty document to SQL NULL.
func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return min(limit, maxLimit)
}
