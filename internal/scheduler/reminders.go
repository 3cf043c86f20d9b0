package scheduler

import (
	"context"
	"fmt"
	"time"

	"notesapp/internal/db"
	"notesapp/internal/notifications/core"
	"notesapp/internal/types"
)

// ReminderStore is the persistence contract for reminders.
//
// ClaimDelivery must be a single conditional update (delivered false -> true,
// and due_at <= dueBy when dueBy is non-zero) reporting whether this caller
// won the claim. It is the only guard against double delivery between a tick
// and an API-triggered delivery. Update must not recreate a deleted reminder.
type ReminderStore interface {
	Create(ctx context.Context, rem *types.Reminder) error
	Update(ctx context.Context, rem *types.Reminder) error
	GetByID(ctx context.Context, id string) (*types.Reminder, error)
	Delete(ctx context.Context, id string) error
	ListPending(ctx context.Context, now time.Time, limit int) ([]*types.Reminder, error)
	ClaimDelivery(ctx context.Context, id string, at, dueBy time.Time) (bool, error)
	ReleaseDelivery(ctx context.Context, id string) error
}

// TaskStore reads pending tasks for the daily sweep.
type TaskStore interface {
	ListDuePending(ctx context.Context, cutoff time.Time) ([]*types.Task, error)
}

// Dispatcher routes messages to channels. core.Registry implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, rem *types.Reminder) (core.DispatchOutcome, error)
	Broadcast(ctx context.Context, message, recipient string, channelTypes []types.ChannelType) error
}

var (
	_ ReminderStore = (*db.ReminderRepository)(nil)
	_ TaskStore     = (*db.TaskRepository)(nil)
	_ Dispatcher    = (*core.Registry)(nil)
)

// TaskDueFormat is the in-app notice sent for a due task without a reminder.
const TaskDueFormat = "Task due: %s"

// ReminderService schedules reminders and delivers them through the
// channel registry.
type ReminderService struct {
	reminders    ReminderStore
	tasks        TaskStore
	dispatcher   Dispatcher
	metrics      core.NotificationMetrics
	clock        types.Clock
	logger       types.Logger
	pendingLimit int
}

// ServiceOption customizes a ReminderService.
type ServiceOption func(*ReminderService)

// WithClock replaces the wall clock.
func WithClock(c types.Clock) ServiceOption {
	return func(s *ReminderService) { s.clock = c }
}

// WithMetrics records tick outcomes.
func WithMetrics(m core.NotificationMetrics) ServiceOption {
	return func(s *ReminderService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithPendingLimit caps how many reminders a single tick loads.
func WithPendingLimit(n int) ServiceOption {
	return func(s *ReminderService) { s.pendingLimit = n }
}

// NewReminderService creates a ReminderService. tasks may be nil when the
// due-task sweep is not used.
func NewReminderService(reminders ReminderStore, tasks TaskStore, dispatcher Dispatcher, logger types.Logger, opts ...ServiceOption) *ReminderService {
	if logger == nil {
		logger = types.DiscardLogger()
	}
	s := &ReminderService{
		reminders:    reminders,
		tasks:        tasks,
		dispatcher:   dispatcher,
		metrics:      core.NopMetrics{},
		clock:        types.RealClock{},
		logger:       logger,
		pendingLimit: db.DefaultPendingLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScheduleReminder validates and persists a new reminder. An empty ID is
// filled in. rem is only modified when the reminder is stored.
func (s *ReminderService) ScheduleReminder(ctx context.Context, rem *types.Reminder) error {
	if rem == nil {
		return types.NewAppError(types.ErrCodeInvalidArgument, "reminder is required", nil)
	}
	if err := rem.ValidateSchedulable(s.clock.Now()); err != nil {
		return err
	}
	next := *rem
	if next.ID == "" {
		next.ID = types.NewReminderID()
	}
	next.DueAt = next.DueAt.UTC()
	if err := next.Validate(); err != nil {
		return err
	}
	if err := s.reminders.Create(ctx, &next); err != nil {
		return err
	}
	*rem = next

	s.logger.Info("reminder scheduled",
		"reminder_id", rem.ID,
		"channel", string(rem.Channel),
		"due_at", rem.DueAt.Format(time.RFC3339),
	)
	return nil
}

// GetReminder returns the stored reminder.
func (s *ReminderService) GetReminder(ctx context.Context, id string) (*types.Reminder, error) {
	if id == "" {
		return nil, types.NewAppError(types.ErrCodeInvalidArgument, "reminder id is required", nil)
	}
	return s.reminders.GetByID(ctx, id)
}

// CancelReminder deletes the reminder from the store. It is a hard removal;
// SnoozeReminder is the state reset that keeps the reminder.
func (s *ReminderService) CancelReminder(ctx context.Context, id string) error {
	if id == "" {
		return types.NewAppError(types.ErrCodeInvalidArgument, "reminder id is required", nil)
	}
	if err := s.reminders.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("reminder cancelled", "reminder_id", id)
	return nil
}

// RescheduleReminder moves a reminder to newTime and marks it undelivered.
// The stored reminder is unchanged when newTime is not in the future.
func (s *ReminderService) RescheduleReminder(ctx context.Context, id string, newTime time.Time) (*types.Reminder, error) {
	rem, err := s.GetReminder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := rem.Reschedule(newTime, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.reminders.Update(ctx, rem); err != nil {
		return nil, err
	}

	s.logger.Info("reminder rescheduled",
		"reminder_id", rem.ID,
		"due_at", rem.DueAt.Format(time.RFC3339),
	)
	return rem, nil
}

// SnoozeReminder resets the delivered flag and keeps the reminder. If its due
// time has already passed, the next tick delivers it again.
func (s *ReminderService) SnoozeReminder(ctx context.Context, id string) (*types.Reminder, error) {
	rem, err := s.GetReminder(ctx, id)
	if err != nil {
		return nil, err
	}
	rem.Cancel()
	if err := s.reminders.Update(ctx, rem); err != nil {
		return nil, err
	}
	s.logger.Info("reminder snoozed", "reminder_id", rem.ID)
	return rem, nil
}

// DeliverNotification sends the reminder through its channel exactly once,
// whatever its due time.
//
// The store claim happens before the send. Losing the claim yields
// AlreadyDelivered, or NotFound when the reminder was deleted. A failed or
// unrouted send releases the claim so the next tick retries; an unregistered
// channel surfaces as ChannelUnregistered.
func (s *ReminderService) DeliverNotification(ctx context.Context, rem *types.Reminder) error {
	return s.deliver(ctx, rem, time.Time{})
}

// deliver claims and sends rem. A non-zero dueBy refuses the claim when the
// stored due time is later, which yields ReminderNotDue.
func (s *ReminderService) deliver(ctx context.Context, rem *types.Reminder, dueBy time.Time) error {
	if rem == nil {
		return types.NewAppError(types.ErrCodeInvalidArgument, "reminder is required", nil)
	}
	if rem.Delivered {
		return alreadyDelivered(rem.ID)
	}

	now := s.clock.Now()
	claimed, err := s.reminders.ClaimDelivery(ctx, rem.ID, now, dueBy)
	if err != nil {
		return err
	}
	if !claimed {
		current, err := s.reminders.GetByID(ctx, rem.ID)
		if err != nil {
			return err
		}
		if !dueBy.IsZero() && !current.Delivered {
			return types.NewAppErrorWithDetails(types.ErrCodeReminderNotDue, "reminder is not due", nil,
				map[string]any{"reminder_id": rem.ID, "due_at": current.DueAt.Format(time.RFC3339)})
		}
		rem.Delivered = current.Delivered
		rem.DeliveredAt = current.DeliveredAt
		return alreadyDelivered(rem.ID)
	}

	outcome, err := s.dispatcher.Dispatch(ctx, rem)
	if err != nil {
		s.release(ctx, rem.ID)
		return fmt.Errorf("delivering reminder %s: %w", rem.ID, err)
	}
	if outcome == core.DispatchUnrouted {
		s.release(ctx, rem.ID)
		return types.NewAppErrorWithDetails(types.ErrCodeChannelUnregistered,
			fmt.Sprintf("no channel registered for %q", rem.Channel), nil,
			map[string]any{"reminder_id": rem.ID, "channel": string(rem.Channel)})
	}

	// The store already holds delivered=true from the claim.
	return rem.MarkDelivered(now)
}

// release undoes a claim. It runs even when ctx is cancelled so a timed-out
// send does not leave the reminder marked delivered.
func (s *ReminderService) release(ctx context.Context, id string) {
	if err := s.reminders.ReleaseDelivery(context.WithoutCancel(ctx), id); err != nil {
		s.logger.Error("failed to release reminder claim",
			"reminder_id", id,
			"error", err,
		)
	}
}

// Tick delivers every pending reminder due now. Per-reminder failures are
// logged and counted; only a failure to list pending reminders or a cancelled
// ctx is returned.
func (s *ReminderService) Tick(ctx context.Context) (TickReport, error) {
	var report TickReport
	logger := s.runLogger(ctx)

	now := s.clock.Now()
	pending, err := s.reminders.ListPending(ctx, now, s.pendingLimit)
	if err != nil {
		return report, fmt.Errorf("listing pending reminders: %w", err)
	}
	report.Due = len(pending)

	for _, rem := range pending {
		if err := ctx.Err(); err != nil {
			logger.Warn("reminder tick interrupted",
				"remaining", report.Due-report.Items(),
				"error", err,
			)
			s.metrics.RecordTick(ctx, report.Delivered, report.Failed)
			return report, err
		}

		err := s.deliver(ctx, rem, now)
		switch {
		case err == nil:
			report.Delivered++
		case types.IsErrorCode(err, types.ErrCodeNotFoundReminder),
			types.IsErrorCode(err, types.ErrCodeAlreadyDelivered),
			types.IsErrorCode(err, types.ErrCodeReminderNotDue):
			report.Skipped++
			logger.Info("reminder skipped",
				"reminder_id", rem.ID,
				"reason", string(types.ErrorCodeOf(err)),
			)
		default:
			report.Failed++
			logger.Error("reminder delivery failed",
				"reminder_id", rem.ID,
				"channel", string(rem.Channel),
				"error", err,
			)
		}
	}

	s.metrics.RecordTick(ctx, report.Delivered, report.Failed)
	if report.Due > 0 {
		logger.Info("reminder tick complete",
			"due", report.Due,
			"delivered", report.Delivered,
			"failed", report.Failed,
			"skipped", report.Skipped,
		)
	}
	return report, nil
}

// DueTasks returns pending tasks whose due date has passed.
func (s *ReminderService) DueTasks(ctx context.Context) ([]*types.Task, error) {
	if s.tasks == nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "task store is not configured", nil)
	}
	tasks, err := s.tasks.ListDuePending(ctx, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("listing due tasks: %w", err)
	}
	return tasks, nil
}

// SweepDueTasks posts an in-app notice for every overdue task that has no
// reminder attached. It does not create reminders.
func (s *ReminderService) SweepDueTasks(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	logger := s.runLogger(ctx)

	tasks, err := s.DueTasks(ctx)
	if err != nil {
		return report, err
	}
	report.Due = len(tasks)

	for _, task := range tasks {
		if task.HasReminder() {
			report.Skipped++
			continue
		}

		message := fmt.Sprintf(TaskDueFormat, task.Title)
		logger.Info("task due", "task_id", task.ID, "user_id", task.UserID)

		if err := s.dispatcher.Broadcast(ctx, message, task.UserID, []types.ChannelType{types.ChannelInApp}); err != nil {
			report.Failed++
			logger.Warn("task due notice failed",
				"task_id", task.ID,
				"error", err,
			)
			continue
		}
		report.Notified++
	}

	if report.Due > 0 {
		logger.Info("task sweep complete",
			"due", report.Due,
			"notified", report.Notified,
			"failed", report.Failed,
			"skipped", report.Skipped,
		)
	}
	return report, nil
}

func alreadyDelivered(id string) error {
	return types.NewAppErrorWithDetails(types.ErrCodeAlreadyDelivered, "reminder already delivered", nil,
		map[string]any{"reminder_id": id})
}

// runLogger prefers a logger carried by ctx and tags it with the scheduler
// run, so every line of one tick or sweep can be correlated.
func (s *ReminderService) runLogger(ctx context.Context) types.Logger {
	logger := s.logger
	if l := types.LoggerFromContext(ctx); l != nil {
		logger = l
	}
	if run := types.GetJobRunID(ctx); run != "" {
		logger = logger.With("job_run_id", run)
	}
	return logger
}
