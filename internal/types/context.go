package types

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	loggerKey    contextKey = "logger"
	jobRunKey    contextKey = "job_run_id"
)

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithJobRunID tags the context with the identifier of the scheduler run
// (tick or sweep) currently executing.
func WithJobRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, jobRunKey, id)
}

// GetJobRunID retrieves the scheduler run identifier, or "" outside a run.
func GetJobRunID(ctx context.Context) string {
	id, _ := ctx.Value(jobRunKey).(string)
	return id
}

// WithLogger stores a Logger in the context.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext retrieves the Logger from the context.
// Returns nil if no logger has been set.
func LoggerFromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return nil
}
