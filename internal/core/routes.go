package core

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"notesapp/internal/types"
)

const defaultRequestTimeout = 29 * time.Second

// Masked in request logs.
var defaultRedactedHeaders = []string{"Authorization", "Cookie", "Sec-Websocket-Key"}

// MountRoutes installs the middleware chain, every V1RouteRegistrar under
// /v1 and GET /health. Call it once, after the registrars are set.
func (s *Server) MountRoutes() {
	// Order matters: Recoverer must be outermost, and the request ID must
	// exist before anything logs or writes an error body.
	s.router.Use(
		s.Recoverer,
		ContextTimeoutMiddleware(defaultRequestTimeout),
		RequestIDMiddleware,
		s.SecurityHeadersMiddleware,
		RequestLogger(s.Logger, defaultRedactedHeaders),
		NewCORSMiddleware(s.allowedOrigins()),
		s.MetricsMiddleware,
	)

	s.router.Route("/v1", func(r chi.Router) {
		for _, register := range s.V1RouteRegistrars {
			register(r)
		}
	})
	s.router.Get("/health", s.HandleHealth)
}

func (s *Server) allowedOrigins() []string {
	if s.Config == nil || len(s.Config.Server.CorsAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return s.Config.Server.CorsAllowedOrigins
}

// ContextTimeoutMiddleware puts a deadline on every request context except
// WebSocket upgrades, whose context spans the whole session.
func ContextTimeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !websocket.IsWebSocketUpgrade(r) {
				ctx, cancel := context.WithTimeout(r.Context(), d)
				defer cancel()
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestIDMiddleware keeps the caller's X-Request-Id or assigns a new one,
// stores it in the context and echoes it on the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = strings.ReplaceAll(uuid.NewString(), "-", "")
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(types.WithRequestID(r.Context(), id)))
	})
}
