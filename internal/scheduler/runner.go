package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"notesapp/internal/config"
	"notesapp/internal/db"
	"notesapp/internal/types"
)

// ErrJobLocked is returned by RunJob when another worker holds the lock for
// the same job window.
var ErrJobLocked = errors.New("job lock held by another worker")

// Jobs is the work the Runner drives. ReminderService implements it.
type Jobs interface {
	Tick(ctx context.Context) (TickReport, error)
	SweepDueTasks(ctx context.Context) (SweepReport, error)
}

// JobLocker abstracts the distributed lock acquisition.
type JobLocker interface {
	Acquire(ctx context.Context, lockID string, workerID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, lockID string, workerID string) error
}

// JobHistorian abstracts the job history recording.
type JobHistorian interface {
	Start(ctx context.Context, jobType string) (int64, error)
	Finish(ctx context.Context, id int64, status string, items int, err error) error
}

var (
	_ Jobs         = (*ReminderService)(nil)
	_ JobLocker    = (*db.JobLockRepository)(nil)
	_ JobHistorian = (*db.JobHistoryRepository)(nil)
)

// RunnerConfig holds the schedule of the periodic jobs.
type RunnerConfig struct {
	TickInterval time.Duration
	TickTimeout  time.Duration
	SweepCron    string
	Location     *time.Location
	LockTTL      time.Duration
	WorkerID     string
}

// NewRunnerConfig derives a RunnerConfig from the scheduler settings.
func NewRunnerConfig(cfg config.SchedulerConfig) RunnerConfig {
	return RunnerConfig{
		TickInterval: cfg.TickInterval,
		TickTimeout:  cfg.TickTimeout,
		SweepCron:    cfg.SweepCron,
		Location:     cfg.SweepLocation(),
		LockTTL:      cfg.LockTTL,
	}
}

// Runner invokes the reminder tick on a fixed interval and the due-task sweep
// on a cron schedule until its context ends.
type Runner struct {
	jobs    Jobs
	cfg     RunnerConfig
	locks   JobLocker    // nil disables cross-instance locking
	history JobHistorian // nil disables job history
	logger  *slog.Logger
	now     func() time.Time
}

// NewRunner creates a Runner. locks and history may be nil.
func NewRunner(jobs Jobs, cfg RunnerConfig, locks JobLocker, history JobHistorian, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	if cfg.SweepCron == "" {
		cfg.SweepCron = "0 9 * * *"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 55 * time.Second
	}
	if cfg.WorkerID == "" {
		cfg.WorkerID = "reminderd-" + uuid.NewString()
	}
	return &Runner{
		jobs:    jobs,
		cfg:     cfg,
		locks:   locks,
		history: history,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run blocks until ctx is done. The first tick runs immediately.
func (r *Runner) Run(ctx context.Context) error {
	c := cron.New(cron.WithParser(config.SweepParser), cron.WithLocation(r.cfg.Location))
	if _, err := c.AddFunc(r.cfg.SweepCron, func() { r.runScheduled(ctx, TaskDueSweep) }); err != nil {
		return fmt.Errorf("registering task sweep %q: %w", r.cfg.SweepCron, err)
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	r.logger.InfoContext(ctx, "scheduler started",
		"worker_id", r.cfg.WorkerID,
		"tick_interval", r.cfg.TickInterval.String(),
		"sweep_cron", r.cfg.SweepCron,
		"tz", r.cfg.Location.String(),
	)

	ticker := time.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()

	r.runScheduled(ctx, TaskReminderTick)
	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "scheduler stopping", "worker_id", r.cfg.WorkerID)
			return nil
		case <-ticker.C:
			r.runScheduled(ctx, TaskReminderTick)
		}
	}
}

func (r *Runner) runScheduled(ctx context.Context, task TaskType) {
	if ctx.Err() != nil {
		return
	}
	if _, err := r.RunJob(ctx, task, r.now()); err != nil && !errors.Is(err, ErrJobLocked) {
		r.logger.ErrorContext(ctx, "scheduled job failed",
			"task", string(task),
			"error", err,
		)
	}
}

// RunJob executes one job for the window containing now, guarded by the job
// lock and recorded in job history when those are configured. It returns the
// number of items handled.
func (r *Runner) RunJob(ctx context.Context, task TaskType, now time.Time) (int, error) {
	lockID := r.LockID(task, now)
	ctx = types.WithJobRunID(ctx, lockID)
	if r.locks != nil {
		acquired, err := r.locks.Acquire(ctx, lockID, r.cfg.WorkerID, r.cfg.LockTTL)
		if err != nil {
			return 0, fmt.Errorf("acquiring job lock %s: %w", lockID, err)
		}
		if !acquired {
			r.logger.InfoContext(ctx, "job lock not acquired, another worker is processing",
				"lock_id", lockID,
			)
			return 0, ErrJobLocked
		}
	}

	var jobID int64
	if r.history != nil {
		id, err := r.history.Start(ctx, string(task))
		if err != nil {
			// Non-fatal: the job still runs without a history row.
			r.logger.ErrorContext(ctx, "failed to start job history",
				"task", string(task),
				"error", err,
			)
		}
		jobID = id
	}

	items, execErr := r.execute(ctx, task)

	if jobID != 0 {
		status := "success"
		if execErr != nil {
			status = "failed"
		}
		if err := r.history.Finish(context.WithoutCancel(ctx), jobID, status, items, execErr); err != nil {
			r.logger.ErrorContext(ctx, "failed to finish job history",
				"job_id", jobID,
				"task", string(task),
				"error", err,
			)
		}
	}

	if execErr != nil {
		// Let another worker retry the same window.
		if r.locks != nil {
			if err := r.locks.Release(context.WithoutCancel(ctx), lockID, r.cfg.WorkerID); err != nil {
				r.logger.ErrorContext(ctx, "failed to release job lock",
					"lock_id", lockID,
					"error", err,
				)
			}
		}
		return items, fmt.Errorf("task %s failed: %w", task, execErr)
	}
	return items, nil
}

func (r *Runner) execute(ctx context.Context, task TaskType) (int, error) {
	switch task {
	case TaskReminderTick:
		if r.cfg.TickTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.cfg.TickTimeout)
			defer cancel()
		}
		report, err := r.jobs.Tick(ctx)
		return report.Items(), err

	case TaskDueSweep:
		report, err := r.jobs.SweepDueTasks(ctx)
		return report.Notified, err

	default:
		return 0, fmt.Errorf("unknown task type %q", task)
	}
}

// LockID names the lock for the job window containing now: one window per
// tick interval for ticks, one per local calendar day for sweeps.
func (r *Runner) LockID(task TaskType, now time.Time) string {
	switch task {
	case TaskReminderTick:
		return fmt.Sprintf("%s:%s", task, now.UTC().Truncate(r.cfg.TickInterval).Format("2006-01-02T15:04:05"))
	case TaskDueSweep:
		return fmt.Sprintf("%s:%s", task, now.In(r.cfg.Location).Format("2006-01-02"))
	default:
		return fmt.Sprintf("%s:%s", task, now.UTC().Format(time.RFC3339))
	}
}
