package db

import (
	"context"
	"time"

	"notesapp/internal/types"
)

// TaskRepository reads todo items for the daily due-task sweep.
// Task writes belong to the task service and are not exposed here.
type TaskRepository struct {
	db DBTX
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db DBTX) *TaskRepository {
	return &TaskRepository{db: db}
}

// ListDue returns tasks in the given status whose due date is set and at or
// before the cutoff, earliest first.
func (r *TaskRepository) ListDue(ctx context.Context, status types.TaskStatus, cutoff time.Time) ([]*types.Task, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, title, status, due_date, reminder_id
		 FROM todo_items
		 WHERE status = $1 AND due_date IS NOT NULL AND due_date <= $2
		 ORDER BY due_date ASC, id ASC`,
		string(status),
		cutoff,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query due tasks", err)
	}
	defer rows.Close()

	var tasks []*types.Task
	for rows.Next() {
		var (
			t         types.Task
			statusStr string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &statusStr, &t.DueAt, &t.ReminderID); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan due task", err)
		}
		t.Status = types.TaskStatus(statusStr)
		tasks = append(tasks, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating due tasks", err)
	}
	return tasks, nil
}

// ListDuePending is ListDue restricted to pending tasks.
func (r *TaskRepository) ListDuePending(ctx context.Context, cutoff time.Time) ([]*types.Task, error) {
	return r.ListDue(ctx, types.TaskPending, cutoff)
}
