package types

import (
	"context"
	"testing"
)

type mockLogger struct {
	messages []string
}

func (m *mockLogger) Info(msg string, args ...any)  { m.messages = append(m.messages, "info:"+msg) }
func (m *mockLogger) Error(msg string, args ...any) { m.messages = append(m.messages, "error:"+msg) }
func (m *mockLogger) Warn(msg string, args ...any)  { m.messages = append(m.messages, "warn:"+msg) }
func (m *mockLogger) With(args ...any) Logger       { return m }

func TestWithRequestID_GetRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-abc")
	if got := GetRequestID(ctx); got != "req-abc" {
		t.Errorf("GetRequestID() = %q, want %q", got, "req-abc")
	}
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID() on empty context = %q, want empty", got)
	}
}

func TestWithJobRunID_GetJobRunID(t *testing.T) {
	ctx := WithJobRunID(context.Background(), "reminder_tick:202603140800")
	if got := GetJobRunID(ctx); got != "reminder_tick:202603140800" {
		t.Errorf("GetJobRunID() = %q", got)
	}
	if got := GetJobRunID(context.Background()); got != "" {
		t.Errorf("GetJobRunID() on empty context = %q, want empty", got)
	}
}

func TestWithLogger_LoggerFromContext(t *testing.T) {
	logger := &mockLogger{}
	ctx := WithLogger(context.Background(), logger)

	got := LoggerFromContext(ctx)
	if got == nil {
		t.Fatal("expected logger, got nil")
	}
	got.Info("hello")
	if len(logger.messages) != 1 || logger.messages[0] != "info:hello" {
		t.Errorf("messages = %v", logger.messages)
	}
	if LoggerFromContext(context.Background()) != nil {
		t.Errorf("expected nil logger on empty context")
	}
}

func TestContextValues_DoNotInterfere(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithJobRunID(ctx, "run-1")

	if GetRequestID(ctx) != "req-1" || GetJobRunID(ctx) != "run-1" {
		t.Errorf("context values overwritten each other")
	}
	// A plain string key must not collide with the private key type.
	ctx = context.WithValue(ctx, "request_id", "spoofed") //nolint:staticcheck
	if GetRequestID(ctx) != "req-1" {
		t.Errorf("string key collided with private context key")
	}
}
