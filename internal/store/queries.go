package store

// SQL query constants organized by entity.
// All SQL lives here; PostgresStore methods reference these constants.

// Balance queries.
const (
	querySaveBalanceSnapshot = `
		INSERT INTO balance_snapshots (currency, current, for_withdraw, captured_at)
		VALUES (@currency, @current, @for_withdraw, @captured_at)
		RETURNING id, captured_at`

	queryLatestBalance = `
		SELECT id, currency, current, for_withdraw, captured_at
		FROM balance_snapshots
		ORDER BY captured_at DESC
		LIMIT 1`

	queryListBalanceSnapshots = `
		SELECT id, currency, current, for_withdraw, captured_at
		FROM balance_snapshots
		WHERE captured_at >= $1
		ORDER BY captured_at DESC
		LIMIT $2`
)

// Tracked task queries.
const (
	queryTrackTask = `
		INSERT INTO tracked_tasks (
			kind, external_id, family, label, status, deadline
		) VALUES (
			@kind, @external_id, @family, @label, @status, @deadline
		)
		ON CONFLICT (kind, family, external_id) DO UPDATE SET
			label      = EXCLUDED.label,
			deadline   = EXCLUDED.deadline,
			updated_at = now()
		RETURNING id, outcome, created_at, updated_at`

	queryGetTrackedTask = `
		SELECT id, kind, external_id, family, label,
			status, outcome, progress, errors_count, error_text, polls, raw,
			deadline, last_polled, completed_at, created_at, updated_at
		FROM tracked_tasks
		WHERE id = $1`

	queryUpdateTrackedTask = `
		UPDATE tracked_tasks SET
			status       = @status,
			outcome      = @outcome,
			progress     = @progress,
			errors_count = @errors_count,
			error_text   = @error_text,
			polls        = @polls,
			raw          = @raw,
			last_polled  = @last_polled,
			completed_at = @completed_at,
			updated_at   = now()
		WHERE id = @id
		RETURNING updated_at`
)

// Limiter snapshot queries.
const (
	querySaveLimiterSnapshot = `
		INSERT INTO limiter_snapshots (category, remaining, limit_value, reset_at, captured_at)
		VALUES ($1, $2, $3, $4, $5)`

	queryListLimiterSnapshots = `
		SELECT category, remaining, limit_value, reset_at, captured_at
		FROM limiter_snapshots
		WHERE ($1 = '' OR category = $1)
		ORDER BY captured_at DESC
		LIMIT $2`

	queryDeleteOldLimiterSnapshots = `
		DELETE FROM limiter_snapshots WHERE captured_at < now() - interval '7 days'`
)

// System state queries.
const (
	queryGetSystemState = `
		SELECT
			COUNT(*) FILTER (WHERE outcome = ''),
			COUNT(*) FILTER (WHERE outcome = 'succeeded'),
			COUNT(*) FILTER (WHERE outcome = 'failed'),
			COUNT(*) FILTER (WHERE outcome = 'timed_out'),
			(SELECT MAX(captured_at) FROM balance_snapshots)
		FROM tracked_tasks`
)

// Scheduler queries.
const (
	queryInsertJobRun = `
		INSERT INTO job_runs (job_name)
		VALUES ($1)
		RETURNING id`

	queryCompleteJobRun = `
		UPDATE job_runs SET
			completed_at  = now(),
			status        = $2,
			error_text    = $3,
			rows_affected = $4
		WHERE id = $1`

	queryListJobRuns = `
		SELECT id, job_name, started_at, completed_at, status,
			COALESCE(error_text, ''), rows_affected
		FROM job_runs
		WHERE job_name = $1
		ORDER BY started_at DESC
		LIMIT $2`

	queryListLatestJobRuns = `
		SELECT DISTINCT ON (job_name)
			id, job_name, started_at, completed_at, status,
			COALESCE(error_text, ''), rows_affected
		FROM job_runs
		ORDER BY job_name, started_at DESC`

	queryMarkStaleJobRunsCrashed = `
		UPDATE job_runs SET
			status       = 'crashed',
			completed_at = now()
		WHERE status = 'running' AND started_at < $1`

	queryDeleteOldJobRuns = `
		DELETE FROM job_runs WHERE started_at < now() - interval '30 days'`

	queryAcquireSchedulerLock = `
		INSERT INTO scheduler_locks (job_name, lock_holder, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (job_name) DO UPDATE
			SET locked_at   = now(),
				lock_holder = EXCLUDED.lock_holder,
				expires_at  = EXCLUDED.expires_at
			WHERE scheduler_locks.expires_at < now()
		RETURNING job_name`

	queryReleaseSchedulerLock = `
		DELETE FROM scheduler_locks WHERE job_name = $1 AND lock_holder = $2`
)
