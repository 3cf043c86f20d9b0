package types

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var entityValidator = validator.New()

// Reminder is a scheduled intent to notify someone about a note or task
// through one channel at one point in time.
type Reminder struct {
	ID          string      `json:"id" db:"id" validate:"required"`
	TargetID    string      `json:"target_id" db:"target_id" validate:"required"`
	TargetKind  TargetKind  `json:"target_kind" db:"target_kind" validate:"required,oneof=note task"`
	DueAt       time.Time   `json:"due_at" db:"due_at" validate:"required"`
	Channel     ChannelType `json:"channel" db:"channel" validate:"required,oneof=email push sms in_app"`
	Message     string      `json:"message" db:"message" validate:"max=2000"`
	Delivered   bool        `json:"delivered" db:"delivered"`
	DeliveredAt *time.Time  `json:"delivered_at,omitempty" db:"delivered_at"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// NewReminderID returns a fresh prefixed reminder identifier.
func NewReminderID() string {
	return "rem_" + uuid.New().String()
}

// NewReminder builds an undelivered reminder with a fresh ID.
// It does not check DueAt; that happens when the reminder is scheduled.
func NewReminder(targetID string, kind TargetKind, dueAt time.Time, channel ChannelType, message string) *Reminder {
	return &Reminder{
		ID:         NewReminderID(),
		TargetID:   targetID,
		TargetKind: kind,
		DueAt:      dueAt.UTC(),
		Channel:    channel,
		Message:    message,
	}
}

// Validate implements the Validator interface for Reminder.
func (r *Reminder) Validate() error {
	if err := entityValidator.Struct(r); err != nil {
		return NewAppError(ErrCodeInvalidArgument, "reminder is incomplete", err)
	}
	return nil
}

// ValidateSchedulable fails with InvalidSchedule unless DueAt is strictly after now.
func (r *Reminder) ValidateSchedulable(now time.Time) error {
	return validateFutureTime(r.DueAt, now)
}

// Cancel resets the delivery state so the reminder may fire again.
// It does not remove the reminder; see ReminderService.CancelReminder for that.
func (r *Reminder) Cancel() {
	r.Delivered = false
	r.DeliveredAt = nil
}

// Reschedule moves the reminder to newTime and clears any prior delivery.
// On error the reminder is left untouched.
func (r *Reminder) Reschedule(newTime, now time.Time) error {
	if err := validateFutureTime(newTime, now); err != nil {
		return err
	}
	r.DueAt = newTime.UTC()
	r.Delivered = false
	r.DeliveredAt = nil
	return nil
}

// MarkDelivered records a successful delivery at the given time.
func (r *Reminder) MarkDelivered(at time.Time) error {
	if r.Delivered {
		return NewAppErrorWithDetails(ErrCodeAlreadyDelivered, "reminder already delivered", nil,
			map[string]any{"reminder_id": r.ID})
	}
	at = at.UTC()
	r.Delivered = true
	r.DeliveredAt = &at
	return nil
}

// IsDue reports whether the reminder is undelivered and its time has come.
func (r *Reminder) IsDue(now time.Time) bool {
	return !r.Delivered && !r.DueAt.After(now)
}

// DisplayMessage returns the reminder text, falling back to a default
// derived from the target kind when no message was supplied.
func (r *Reminder) DisplayMessage() string {
	if r.Message != "" {
		return r.Message
	}
	switch r.TargetKind {
	case TargetTask:
		return "Task reminder"
	case TargetNote:
		return "Note reminder"
	}
	return "Reminder"
}

func validateFutureTime(t, now time.Time) error {
	if t.IsZero() {
		return NewAppError(ErrCodeInvalidSchedule, "reminder time is required", nil)
	}
	if !t.After(now) {
		return NewAppErrorWithDetails(ErrCodeInvalidSchedule,
			fmt.Sprintf("reminder time %s must be in the future", t.UTC().Format(time.RFC3339)),
			nil,
			map[string]any{"due_at": t.UTC(), "now": now.UTC()},
		)
	}
	return nil
}
