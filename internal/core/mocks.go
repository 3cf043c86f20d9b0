package core

import (
	"context"
	"sync"
	"time"
)

// --- MockHealthProbe ---

// MockHealthProbe implements HealthProbe for testing.
//
//	probe := &MockHealthProbe{ProbeName: "database", Err: errors.New("down")}
//	srv.HealthProbes = []HealthProbe{probe}
type MockHealthProbe struct {
	ProbeName string

	// Err is returned by Check.
	Err error

	// Delay blocks Check until it elapses or ctx ends.
	Delay time.Duration

	mu    sync.Mutex
	calls int
}

// Name implements HealthProbe.
func (m *MockHealthProbe) Name() string { return m.ProbeName }

// Check implements HealthProbe.
func (m *MockHealthProbe) Check(ctx context.Context) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.Err
}

// Calls returns how many times Check ran.
func (m *MockHealthProbe) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- MockMetricsCollector ---

// RecordedRequest is one call to MockMetricsCollector.RecordRequest.
type RecordedRequest struct {
	Method   string
	Endpoint string
	Status   string
	Duration time.Duration
}

// MockMetricsCollector implements MetricsCollector by recording calls.
type MockMetricsCollector struct {
	mu       sync.Mutex
	Requests []RecordedRequest
}

// RecordRequest implements MetricsCollector.
func (m *MockMetricsCollector) RecordRequest(method, endpoint, status string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, RecordedRequest{
		Method:   method,
		Endpoint: endpoint,
		Status:   status,
		Duration: duration,
	})
}

// Recorded returns a copy of the recorded requests.
func (m *MockMetricsCollector) Recorded() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RecordedRequest(nil), m.Requests...)
}
