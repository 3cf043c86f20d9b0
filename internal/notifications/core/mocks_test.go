package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"notesapp/internal/types"
)

type logEntry struct {
	level string
	msg   string
	args  []any
}

// mockLogger records log calls. Loggers derived via With share the entries.
type mockLogger struct {
	mu      *sync.Mutex
	entries *[]logEntry
	fields  []any
}

func newMockLogger() *mockLogger {
	return &mockLogger{mu: &sync.Mutex{}, entries: &[]logEntry{}}
}

func (l *mockLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	all := append(append([]any{}, l.fields...), args...)
	*l.entries = append(*l.entries, logEntry{level: level, msg: msg, args: all})
}

func (l *mockLogger) Info(msg string, args ...any)  { l.record("info", msg, args) }
func (l *mockLogger) Error(msg string, args ...any) { l.record("error", msg, args) }
func (l *mockLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args) }
func (l *mockLogger) With(args ...any) types.Logger {
	return &mockLogger{mu: l.mu, entries: l.entries, fields: append(append([]any{}, l.fields...), args...)}
}

func (l *mockLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range *l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

// mockChannel records sends and optionally fails them.
type mockChannel struct {
	channelType types.ChannelType
	err         error

	mu    sync.Mutex
	sends []sentMessage
}

type sentMessage struct {
	message   string
	recipient string
}

func (c *mockChannel) Type() types.ChannelType { return c.channelType }

func (c *mockChannel) Send(_ context.Context, message, recipient string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sends = append(c.sends, sentMessage{message: message, recipient: recipient})
	return c.err
}

func (c *mockChannel) sendCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sends)
}

// recordingMetrics captures NotificationMetrics calls.
type recordingMetrics struct {
	mu         sync.Mutex
	deliveries []string
	latencies  int
	ticks      [][2]int
}

func (m *recordingMetrics) RecordDelivery(_ context.Context, ch types.ChannelType, result MetricResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, fmt.Sprintf("%s/%s", ch, result))
}

func (m *recordingMetrics) RecordLatency(context.Context, types.ChannelType, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies++
}

func (m *recordingMetrics) RecordTick(_ context.Context, delivered, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks = append(m.ticks, [2]int{delivered, failed})
}
