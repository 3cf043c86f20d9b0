package core

import (
	"context"
	"time"
)

// MetricsCollector records API telemetry.
type MetricsCollector interface {
	// RecordRequest records latency and count for one request.
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// HealthProbe defines the interface for a subsystem health check.
// Each probe represents a dependency (database, channel registry) that must
// be operational for reminders to be delivered.
type HealthProbe interface {
	// Name returns a human-readable identifier for the probe (e.g., "database").
	Name() string

	// Check performs the health check against the subsystem.
	// It should respect the context deadline.
	Check(ctx context.Context) error
}
