package types

import "time"

// Task is the read-only view of a todo item used by the daily due-task sweep.
type Task struct {
	ID         string     `json:"id" db:"id"`
	UserID     string     `json:"user_id" db:"user_id"`
	Title      string     `json:"title" db:"title"`
	Status     TaskStatus `json:"status" db:"status"`
	DueAt      *time.Time `json:"due_at,omitempty" db:"due_date"`
	ReminderID *string    `json:"reminder_id,omitempty" db:"reminder_id"`
}

// HasReminder reports whether a reminder is attached to the task.
func (t *Task) HasReminder() bool {
	return t.ReminderID != nil && *t.ReminderID != ""
}

// Contact holds the addresses a user can be reached at.
// Any field may be empty when the user has not configured that route.
type Contact struct {
	UserID      string `json:"user_id" db:"user_id"`
	Email       string `json:"email" db:"email"`
	Phone       string `json:"phone,omitempty" db:"phone"`
	DeviceToken string `json:"-" db:"push_token"`
}
