// Package main is the entry point for the reminder daemon.
//
// One process serves the reminder HTTP API and the in-app WebSocket endpoint
// while the scheduler runner ticks pending reminders and fires the daily
// due-task sweep. Both stop together on SIGINT or SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"notesapp/internal/api/handlers"
	"notesapp/internal/bootstrap"
	"notesapp/internal/config"
	"notesapp/internal/core"
	"notesapp/internal/db"
	"notesapp/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(config.NewFileSecretProvider())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := bootstrap.NewLogger(cfg.LogLevel)
	logger.Info("reminderd starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.HealthProbes = []core.HealthProbe{
		db.NewDatabaseProbe(app.Pool),
		core.NewChannelProbe(app.Registry),
	}

	var requestMetrics *core.CloudWatchRequestMetrics
	if cfg.Observability.EnableMetrics {
		requestMetrics = core.NewCloudWatchRequestMetrics(
			cloudwatch.NewFromConfig(app.AWS),
			cfg.Observability.MetricNamespace,
			types.NewSlogLogger(logger.With("component", "request_metrics")),
		)
		srv.Metrics = requestMetrics
	}

	reminderHandler := handlers.NewReminderHandler(app.Service, srv.Validator, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		reminderHandler.RegisterRoutes,
		func(r chi.Router) { r.Get("/ws", app.Hub.ServeHTTP) },
	)
	srv.MountRoutes()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	g.Go(func() error {
		return app.Runner.Run(gctx)
	})
	if requestMetrics != nil {
		g.Go(func() error {
			return requestMetrics.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("reminderd stopped cleanly")
	return nil
}
