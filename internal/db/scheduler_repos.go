package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"notesapp/internal/types"
)

// An expired row is taken over in place; a live one leaves the statement
// with zero affected rows.
const acquireLockSQL = `
INSERT INTO job_locks (id, worker_id, locked_at, expires_at)
VALUES (@id, @worker, @now, @expires)
ON CONFLICT (id) DO UPDATE
   SET worker_id = EXCLUDED.worker_id,
       locked_at = EXCLUDED.locked_at,
       expires_at = EXCLUDED.expires_at
 WHERE job_locks.expires_at < @now`

const releaseLockSQL = `DELETE FROM job_locks WHERE id = $1 AND worker_id = $2`

const startJobSQL = `
INSERT INTO job_history (job_type, started_at, status)
VALUES ($1, NOW(), 'running')
RETURNING id`

const finishJobSQL = `
UPDATE job_history
   SET finished_at = NOW(), status = @status, items_count = @items, error = @error
 WHERE id = @id`

// JobLockRepository serialises scheduler windows across replicas through
// job_locks. Lock IDs look like "reminder_tick:2026-03-14T08:01:00".
type JobLockRepository struct {
	db    DBTX
	clock types.Clock
}

func NewJobLockRepository(db DBTX) *JobLockRepository {
	return &JobLockRepository{db: db, clock: types.RealClock{}}
}

// Acquire reports whether workerID now holds lockID for ttl.
// Expiry is computed here rather than in SQL so the TTL never has to be
// rendered as a PostgreSQL interval.
func (r *JobLockRepository) Acquire(ctx context.Context, lockID, workerID string, ttl time.Duration) (bool, error) {
	now := r.clock.Now()
	tag, err := r.db.Exec(ctx, acquireLockSQL, pgx.NamedArgs{
		"id":      lockID,
		"worker":  workerID,
		"now":     now,
		"expires": now.Add(ttl),
	})
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to acquire job lock", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Release deletes lockID if workerID still owns it.
func (r *JobLockRepository) Release(ctx context.Context, lockID, workerID string) error {
	if _, err := r.db.Exec(ctx, releaseLockSQL, lockID, workerID); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to release job lock", err)
	}
	return nil
}

// JobHistoryRepository writes one job_history row per scheduler run.
type JobHistoryRepository struct {
	db DBTX
}

func NewJobHistoryRepository(db DBTX) *JobHistoryRepository {
	return &JobHistoryRepository{db: db}
}

// Start opens a 'running' row.
func (r *JobHistoryRepository) Start(ctx context.Context, jobType string) (int64, error) {
	var id int64
	if err := r.db.QueryRow(ctx, startJobSQL, jobType).Scan(&id); err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to start job history entry", err)
	}
	return id, nil
}

// Finish closes row id with its final status and item count. jobErr, when
// set, is stored as text.
func (r *JobHistoryRepository) Finish(ctx context.Context, id int64, status string, items int, jobErr error) error {
	var errText *string
	if jobErr != nil {
		errText = nilIfEmpty(jobErr.Error())
	}

	tag, err := r.db.Exec(ctx, finishJobSQL, pgx.NamedArgs{
		"id":     id,
		"status": status,
		"items":  items,
		"error":  errText,
	})
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to finish job history entry", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "job history entry not found", nil)
	}
	return nil
}
