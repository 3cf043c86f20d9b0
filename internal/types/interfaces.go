package types

import "time"

// Clock is injected wherever "now" decides behaviour, such as due checks,
// snooze deadlines and lock expiry.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock in UTC.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// Logger is the logging surface the scheduler and channels depend on.
// NewSlogLogger adapts a *slog.Logger to it.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}
