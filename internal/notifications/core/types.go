// Package core provides the shared notification infrastructure used by every
// delivery channel: the Channel contract, the channel Registry that routes a
// reminder to its channel, and delivery metrics.
package core

import (
	"context"
	"time"

	"notesapp/internal/types"
)

// Channel is a notification transport. Send reports transport failures as a
// returned error and must not panic on ordinary delivery problems.
type Channel interface {
	Type() types.ChannelType
	Send(ctx context.Context, message, recipient string) error
}

// ContactResolver maps a recipient identifier (task, note or user ID) to the
// owning user's contact details.
type ContactResolver interface {
	ResolveContact(ctx context.Context, recipient string) (*types.Contact, error)
}

// DispatchOutcome describes what Registry.Dispatch did with a reminder.
type DispatchOutcome string

const (
	// DispatchDelivered indicates the channel accepted the message.
	DispatchDelivered DispatchOutcome = "delivered"

	// DispatchUnrouted indicates no channel is registered for the reminder's
	// channel type. Nothing was sent.
	DispatchUnrouted DispatchOutcome = "unrouted"

	// DispatchFailed indicates the channel returned an error.
	DispatchFailed DispatchOutcome = "failed"
)

// MetricResult categorizes a delivery outcome for metrics reporting.
type MetricResult string

const (
	MetricSuccess  MetricResult = "success"
	MetricFailed   MetricResult = "failed"
	MetricUnrouted MetricResult = "unrouted"
)

// NotificationMetrics abstracts CloudWatch/telemetry operations for the
// notification system.
type NotificationMetrics interface {
	RecordDelivery(ctx context.Context, channel types.ChannelType, result MetricResult)
	RecordLatency(ctx context.Context, channel types.ChannelType, duration time.Duration)
	RecordTick(ctx context.Context, delivered, failed int)
}

// NopMetrics discards all metrics. Used when ENABLE_METRICS is false.
type NopMetrics struct{}

var _ NotificationMetrics = NopMetrics{}

func (NopMetrics) RecordDelivery(context.Context, types.ChannelType, MetricResult) {}
func (NopMetrics) RecordLatency(context.Context, types.ChannelType, time.Duration) {}
func (NopMetrics) RecordTick(context.Context, int, int)                           {}
