package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"notesapp/internal/types"
)

// ReminderFormat is the text delivered for a reminder. The second verb is the
// due time in RFC 3339, UTC.
const ReminderFormat = "Reminder: %s (scheduled for %s)"

// Registry maps each channel type to exactly one Channel and routes reminders
// to it. It is built once at process start and passed to the scheduler.
//
// Registering the same type twice replaces the earlier channel.
type Registry struct {
	mu       sync.RWMutex
	channels map[types.ChannelType]Channel

	metrics NotificationMetrics
	logger  types.Logger
	now     func() time.Time
}

// NewRegistry creates an empty Registry. A nil metrics falls back to NopMetrics.
func NewRegistry(metrics NotificationMetrics, logger types.Logger) *Registry {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if logger == nil {
		logger = types.DiscardLogger()
	}
	return &Registry{
		channels: make(map[types.ChannelType]Channel),
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Register stores ch under its own reported type.
func (r *Registry) Register(ch Channel) {
	t := ch.Type()

	r.mu.Lock()
	_, replaced := r.channels[t]
	r.channels[t] = ch
	r.mu.Unlock()

	r.logger.Info("notification channel registered", "channel", string(t), "replaced", replaced)
}

// Resolve returns the channel registered for t.
func (r *Registry) Resolve(t types.ChannelType) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[t]
	return ch, ok
}

// Count returns the number of registered channels.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}

// Types returns the registered channel types in sorted order.
func (r *Registry) Types() []types.ChannelType {
	r.mu.RLock()
	out := make([]types.ChannelType, 0, len(r.channels))
	for t := range r.channels {
		out = append(out, t)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FormatReminder renders the text delivered for rem.
func FormatReminder(rem *types.Reminder) string {
	return fmt.Sprintf(ReminderFormat, rem.DisplayMessage(), rem.DueAt.UTC().Format(time.RFC3339))
}

// Dispatch formats rem and sends it through the channel registered for
// rem.Channel, addressed to rem.TargetID.
//
// An unregistered channel type is not an error here: Dispatch logs a warning
// and returns DispatchUnrouted without calling any channel. Callers that need
// the delivery to count decide what unrouted means for them.
func (r *Registry) Dispatch(ctx context.Context, rem *types.Reminder) (DispatchOutcome, error) {
	if rem == nil {
		return DispatchFailed, types.NewAppError(types.ErrCodeInvalidArgument, "reminder is required", nil)
	}

	log := r.logger.With("reminder_id", rem.ID, "channel", string(rem.Channel))

	ch, ok := r.Resolve(rem.Channel)
	if !ok {
		log.Warn("no channel registered for reminder, nothing sent")
		r.metrics.RecordDelivery(ctx, rem.Channel, MetricUnrouted)
		return DispatchUnrouted, nil
	}

	start := r.now()
	err := ch.Send(ctx, FormatReminder(rem), rem.TargetID)
	r.metrics.RecordLatency(ctx, rem.Channel, r.now().Sub(start))

	if err != nil {
		log.Error("channel send failed", "error", err.Error())
		r.metrics.RecordDelivery(ctx, rem.Channel, MetricFailed)
		return DispatchFailed, err
	}

	r.metrics.RecordDelivery(ctx, rem.Channel, MetricSuccess)
	return DispatchDelivered, nil
}

// Broadcast sends message to recipient through every listed channel type that
// has a registration. Unregistered types are skipped. All channels are
// attempted; their errors are joined.
func (r *Registry) Broadcast(ctx context.Context, message, recipient string, channelTypes []types.ChannelType) error {
	var errs []error
	for _, t := range channelTypes {
		ch, ok := r.Resolve(t)
		if !ok {
			continue
		}
		if err := ch.Send(ctx, message, recipient); err != nil {
			r.metrics.RecordDelivery(ctx, t, MetricFailed)
			errs = append(errs, fmt.Errorf("%s: %w", t, err))
			continue
		}
		r.metrics.RecordDelivery(ctx, t, MetricSuccess)
	}
	return errors.Join(errs...)
}
