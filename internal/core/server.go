// Package core provides the HTTP chassis of the reminder service.
// It builds a chi router, applies the cross-cutting middleware (recovery,
// request IDs, logging, CORS, metrics) and renders errors from the
// types.AppError taxonomy before requests reach domain handlers.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"notesapp/internal/config"
)

// defaultShutdownTimeout bounds graceful shutdown when the config has no value.
const defaultShutdownTimeout = 10 * time.Second

// RouteRegistrar mounts a group of handlers under /v1. Handler packages
// provide registrars so core does not import them.
type RouteRegistrar func(r chi.Router)

// Server holds the dependencies of the HTTP API, allowing for easy injection
// during testing.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator
	Metrics   MetricsCollector

	// HealthProbes are run by GET /health.
	HealthProbes []HealthProbe

	// V1RouteRegistrars are applied by MountRoutes inside /v1.
	V1RouteRegistrars []RouteRegistrar

	router     *chi.Mux
	httpServer *http.Server
}

// NewServer initializes dependencies and the router. The caller mounts
// routes (via MountRoutes) after construction.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler interface for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// ListenAndServe serves HTTP on the configured port until ctx is done, then
// shuts down gracefully within Server.ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort("", s.Config.Server.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("http server listening", "addr", addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	timeout := s.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting requests and waits for in-flight ones to finish.
// It is a no-op when the server was never started.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.Logger.Error("error shutting down http server", "error", err)
			return fmt.Errorf("shutting down http server: %w", err)
		}
	}

	s.Logger.Info("server shutdown complete")
	return nil
}
