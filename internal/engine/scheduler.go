package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/donaldgifford/wb-seller-tracker/internal/metrics"
	"github.com/donaldgifford/wb-seller-tracker/internal/store"
	domain "github.com/donaldgifford/wb-seller-tracker/pkg/types"
)

// Job names as stored in job_runs and accepted by RunJob.
const (
	JobSyncBalance    = "sync_balance"
	JobPollTasks      = "poll_tasks"
	JobSnapshotLimits = "snapshot_limits"
)

// ErrUnknownJob is returned by RunJob for names that are not scheduled.
var ErrUnknownJob = errors.New("unknown job")

// ErrJobLocked is returned when another instance holds the job's lock.
var ErrJobLocked = errors.New("job is already running")

// staleRunAge is how old a 'running' job row must be before startup marks
// it crashed.
const staleRunAge = time.Hour

// Intervals holds the schedule of each job.
type Intervals struct {
	Balance time.Duration
	Tasks   time.Duration
	Limits  time.Duration
}

type job struct {
	name    string
	every   time.Duration
	run     func(context.Context) (int, error)
	entryID cron.EntryID
}

// Scheduler runs engine jobs on fixed intervals and records each run.
type Scheduler struct {
	cron   *cron.Cron
	store  store.Store
	log    *slog.Logger
	holder string
	jobs   map[string]*job
}

// NewScheduler creates a Scheduler for eng. Jobs with a zero interval are
// not scheduled but can still be triggered through RunJob.
func NewScheduler(
	eng *Engine,
	s store.Store,
	iv Intervals,
	log *slog.Logger,
) (*Scheduler, error) {
	host, _ := os.Hostname() //nolint:errcheck // holder id only
	sched := &Scheduler{
		cron:   cron.New(),
		store:  s,
		log:    log,
		holder: host + "-" + uuid.NewString()[:8],
		jobs:   make(map[string]*job),
	}

	for _, j := range []*job{
		{name: JobSyncBalance, every: iv.Balance, run: func(ctx context.Context) (int, error) {
			if _, err := eng.SyncBalance(ctx); err != nil {
				return 0, err
			}
			return 1, nil
		}},
		{name: JobPollTasks, every: iv.Tasks, run: eng.PollTrackedTasks},
		{name: JobSnapshotLimits, every: iv.Limits, run: eng.SnapshotLimits},
	} {
		sched.jobs[j.name] = j
		if j.every <= 0 {
			continue
		}
		id, err := sched.cron.AddFunc("@every "+j.every.String(), func() {
			if err := sched.RunJob(context.Background(), j.name); err != nil && !errors.Is(err, ErrJobLocked) {
				sched.log.Error("scheduled job failed", "job", j.name, "error", err)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("scheduling %s: %w", j.name, err)
		}
		j.entryID = id
	}

	return sched, nil
}

// Start marks runs left over from a previous process as crashed and
// begins running scheduled jobs.
func (s *Scheduler) Start(ctx context.Context) {
	n, err := s.store.RecoverStaleJobRuns(ctx, staleRunAge)
	if err != nil {
		s.log.Warn("recovering stale job runs failed", "error", err)
	} else if n > 0 {
		s.log.Info("marked stale job runs as crashed", "count", n)
	}

	s.log.Info("scheduler started", "holder", s.holder)
	s.cron.Start()
	s.SyncNextRunTimestamps()
}

// Stop gracefully stops the scheduler, waiting for running jobs to finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// JobNames returns every job name, sorted.
func (s *Scheduler) JobNames() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SyncNextRunTimestamps publishes each scheduled job's next run time.
func (s *Scheduler) SyncNextRunTimestamps() {
	for _, j := range s.jobs {
		if j.entryID == 0 {
			continue
		}
		next := s.cron.Entry(j.entryID).Next
		if !next.IsZero() {
			metrics.SchedulerNextRunTimestamp.WithLabelValues(j.name).Set(float64(next.Unix()))
		}
	}
}

// RunJob runs the named job now under its lock and records the run.
func (s *Scheduler) RunJob(ctx context.Context, name string) error {
	j, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	ttl := max(j.every, 5*time.Minute)
	acquired, err := s.store.AcquireSchedulerLock(ctx, name, s.holder, ttl)
	if err != nil {
		return fmt.Errorf("acquiring lock for %s: %w", name, err)
	}
	if !acquired {
		s.log.Debug("job lock held elsewhere, skipping", "job", name)
		return ErrJobLocked
	}
	defer func() {
		if err := s.store.ReleaseSchedulerLock(context.WithoutCancel(ctx), name, s.holder); err != nil {
			s.log.Warn("releasing job lock failed", "job", name, "error", err)
		}
	}()

	runID, err := s.store.InsertJobRun(ctx, name)
	if err != nil {
		return fmt.Errorf("recording start of %s: %w", name, err)
	}

	start := time.Now()
	rows, runErr := j.run(ctx)
	metrics.JobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	status, errText := domain.JobStatusSucceeded, ""
	if runErr != nil {
		status, errText = domain.JobStatusFailed, runErr.Error()
	}
	metrics.JobRunsTotal.WithLabelValues(name, status).Inc()

	if err := s.store.CompleteJobRun(context.WithoutCancel(ctx), runID, status, errText, rows); err != nil {
		s.log.Error("recording completion failed", "job", name, "run", runID, "error", err)
	}
	s.SyncNextRunTimestamps()

	s.log.Info("job finished", "job", name, "status", status, "rows", rows, "duration", time.Since(start))
	return runErr
}
