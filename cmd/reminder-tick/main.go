// Package main is the entrypoint for the reminder tick Lambda function.
//
// EventBridge invokes it with a JobPayload: every minute with the
// reminder_tick task and once a day with task_sweep. Each invocation runs one
// job through the scheduler runner, which takes the distributed job lock for
// the payload's window and records job history. This is the serverless
// alternative to the in-process runner of reminderd; deploy one or the other.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"

	"notesapp/internal/bootstrap"
	"notesapp/internal/config"
	"notesapp/internal/scheduler"
	"notesapp/internal/types"
)

// JobRunner runs one scheduled job for the window containing now.
type JobRunner interface {
	RunJob(ctx context.Context, task scheduler.TaskType, now time.Time) (int, error)
}

// Handler holds the dependencies for the tick Lambda handler function.
type Handler struct {
	Runner JobRunner
	Logger *slog.Logger
	Now    func() time.Time
}

// Handle runs the payload's task. A job whose window is already locked by
// another invocation is reported as skipped, not as a failure.
func (h *Handler) Handle(ctx context.Context, payload scheduler.JobPayload) (string, error) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		logger = logger.With("aws_request_id", lc.AwsRequestID)
	}
	ctx = types.WithLogger(ctx, types.NewSlogLogger(logger))

	if payload.Task == "" {
		return "", fmt.Errorf("empty task type in job payload")
	}

	now := time.Now().UTC()
	if h.Now != nil {
		now = h.Now()
	}
	if payload.ReferenceTime != nil {
		now = payload.ReferenceTime.UTC()
	}

	logger.InfoContext(ctx, "reminder tick invoked",
		"task", string(payload.Task),
		"reference_time", now.Format(time.RFC3339),
	)

	items, err := h.Runner.RunJob(ctx, payload.Task, now)
	if errors.Is(err, scheduler.ErrJobLocked) {
		return fmt.Sprintf("skipped: task %s already running for this window", payload.Task), nil
	}
	if err != nil {
		logger.ErrorContext(ctx, "task execution failed",
			"task", string(payload.Task),
			"error", err,
			"items_before_error", items,
		)
		return "", err
	}

	result := fmt.Sprintf("task %s complete: %d items processed", payload.Task, items)
	logger.InfoContext(ctx, result, "task", string(payload.Task), "items", items)
	return result, nil
}

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig(config.NewFileSecretProvider())
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger := bootstrap.NewLogger(cfg.LogLevel)
	logger.Info("reminder tick Lambda initializing (cold start)")

	// Concurrent invocations for the same window must not double-deliver the
	// sweep, so the job lock is always on here.
	cfg.Scheduler.UseJobLock = true

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	handler := &Handler{
		Runner: app.Runner,
		Logger: logger,
	}

	logger.Info("reminder tick Lambda initialized",
		"channels", app.Registry.Count(),
	)

	lambda.Start(handler.Handle)
}
