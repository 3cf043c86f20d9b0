// Package scheduler drives reminder delivery for the notes app.
//
// ReminderService owns the reminder lifecycle (schedule, cancel, reschedule,
// snooze, deliver) and the two periodic jobs: the reminder tick and the daily
// due-task sweep. Runner invokes those jobs on a ticker and a cron schedule in
// the long-running daemon; cmd/reminder-tick invokes them from EventBridge.
package scheduler

import "time"

// TaskType identifies a periodic job.
type TaskType string

const (
	TaskReminderTick TaskType = "reminder_tick"
	TaskDueSweep     TaskType = "task_sweep"
)

// JobPayload is the JSON payload sent by EventBridge to the reminder-tick
// Lambda.
//
//	{
//	  "task": "reminder_tick",
//	  "reference_time": "2026-03-14T08:01:00Z"  // optional
//	}
type JobPayload struct {
	Task TaskType `json:"task"`
	// ReferenceTime replaces "now" for manual invocation. Nil means the
	// current time.
	ReferenceTime *time.Time `json:"reference_time,omitempty"`
}

// TickReport summarizes one reminder tick.
type TickReport struct {
	Due       int `json:"due"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Items is the number of reminders the tick attempted.
func (r TickReport) Items() int { return r.Delivered + r.Failed + r.Skipped }

// SweepReport summarizes one due-task sweep.
type SweepReport struct {
	Due      int `json:"due"`
	Notified int `json:"notified"`
	Failed   int `json:"failed"`
	// Skipped counts due tasks that already carry a reminder.
	Skipped int `json:"skipped"`
}
