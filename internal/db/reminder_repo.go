package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"notesapp/internal/types"
)

// ReminderRepository provides data access for the reminders table.
//
// Delivery state changes go through ClaimDelivery/ReleaseDelivery, which are
// single conditional UPDATEs. Two deliverers racing on the same reminder
// cannot both observe a successful claim.
type ReminderRepository struct {
	db DBTX
}

// NewReminderRepository creates a new ReminderRepository backed by the given
// database connection (pool or transaction).
func NewReminderRepository(db DBTX) *ReminderRepository {
	return &ReminderRepository{db: db}
}

const reminderColumns = `id, target_id, target_kind, due_at, channel, message,
	delivered, delivered_at, created_at, updated_at`

// DefaultPendingLimit caps a single ListPending batch.
const DefaultPendingLimit = 500

// Create inserts a new reminder and fills its timestamps from the database.
func (r *ReminderRepository) Create(ctx context.Context, rem *types.Reminder) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO reminders
		 (id, target_id, target_kind, due_at, channel, message, delivered, delivered_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()), NOW())
		 RETURNING created_at, updated_at`,
		rem.ID,
		rem.TargetID,
		string(rem.TargetKind),
		rem.DueAt,
		string(rem.Channel),
		rem.Message,
		rem.Delivered,
		rem.DeliveredAt,
		nilIfZeroTime(rem.CreatedAt),
	).Scan(&rem.CreatedAt, &rem.UpdatedAt)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create reminder", err)
	}
	return nil
}

// Update rewrites the schedule and delivery state of an existing reminder.
// A reminder deleted since it was read is not recreated; the call returns
// not_found_reminder instead.
func (r *ReminderRepository) Update(ctx context.Context, rem *types.Reminder) error {
	err := r.db.QueryRow(ctx,
		`UPDATE reminders
		 SET due_at = @due_at, channel = @channel, message = @message,
		     delivered = @delivered, delivered_at = @delivered_at, updated_at = NOW()
		 WHERE id = @id
		 RETURNING created_at, updated_at`,
		pgx.NamedArgs{
			"id":           rem.ID,
			"due_at":       rem.DueAt,
			"channel":      string(rem.Channel),
			"message":      rem.Message,
			"delivered":    rem.Delivered,
			"delivered_at": rem.DeliveredAt,
		},
	).Scan(&rem.CreatedAt, &rem.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return reminderNotFound(rem.ID)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update reminder", err)
	}
	return nil
}

// GetByID returns the reminder or a not_found_reminder error.
func (r *ReminderRepository) GetByID(ctx context.Context, id string) (*types.Reminder, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE id = $1`,
		id,
	)
	rem, err := scanReminder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reminderNotFound(id)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve reminder", err)
	}
	return rem, nil
}

// Delete removes the reminder permanently.
func (r *ReminderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM reminders WHERE id = $1`, id)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete reminder", err)
	}
	if tag.RowsAffected() == 0 {
		return reminderNotFound(id)
	}
	return nil
}

// ListPending returns undelivered reminders whose due time is at or before
// now, oldest first. limit <= 0 applies DefaultPendingLimit.
func (r *ReminderRepository) ListPending(ctx context.Context, now time.Time, limit int) ([]*types.Reminder, error) {
	if limit <= 0 {
		limit = DefaultPendingLimit
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+reminderColumns+`
		 FROM reminders
		 WHERE delivered = FALSE AND due_at <= $1
		 ORDER BY due_at ASC, id ASC
		 LIMIT $2`,
		now,
		limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query pending reminders", err)
	}
	return collectReminders(rows, "pending reminders")
}

// ListByTarget returns every reminder attached to a note or task.
func (r *ReminderRepository) ListByTarget(ctx context.Context, targetID string) ([]*types.Reminder, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+reminderColumns+`
		 FROM reminders
		 WHERE target_id = $1
		 ORDER BY due_at ASC`,
		targetID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query reminders by target", err)
	}
	return collectReminders(rows, "reminders by target")
}

// ClaimDelivery flips delivered from false to true in one statement.
// A non-zero dueBy also requires due_at <= dueBy, so a reminder rescheduled
// after it was listed is left alone. It returns false when the reminder is
// missing, already delivered or no longer due; the caller tells these apart
// with GetByID.
func (r *ReminderRepository) ClaimDelivery(ctx context.Context, id string, at, dueBy time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE reminders
		 SET delivered = TRUE, delivered_at = $2, updated_at = NOW()
		 WHERE id = $1 AND delivered = FALSE
		   AND ($3::timestamptz IS NULL OR due_at <= $3)`,
		id,
		at,
		nilIfZeroTime(dueBy),
	)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to claim reminder delivery", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ReleaseDelivery undoes a claim after a failed send so the next tick retries.
// Releasing a reminder that is no longer claimed is a no-op.
func (r *ReminderRepository) ReleaseDelivery(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE reminders
		 SET delivered = FALSE, delivered_at = NULL, updated_at = NOW()
		 WHERE id = $1 AND delivered = TRUE`,
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to release reminder delivery", err)
	}
	return nil
}

func reminderNotFound(id string) *types.AppError {
	return types.NewAppErrorWithDetails(types.ErrCodeNotFoundReminder, "reminder not found", nil,
		map[string]any{"reminder_id": id})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (*types.Reminder, error) {
	var (
		rem     types.Reminder
		kind    string
		channel string
	)
	if err := row.Scan(
		&rem.ID,
		&rem.TargetID,
		&kind,
		&rem.DueAt,
		&channel,
		&rem.Message,
		&rem.Delivered,
		&rem.DeliveredAt,
		&rem.CreatedAt,
		&rem.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rem.TargetKind = types.TargetKind(kind)
	rem.Channel = types.ChannelType(channel)
	return &rem, nil
}

func collectReminders(rows pgx.Rows, what string) ([]*types.Reminder, error) {
	defer rows.Close()

	var out []*types.Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan "+what, err)
		}
		out = append(out, rem)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating "+what, err)
	}
	return out, nil
}
