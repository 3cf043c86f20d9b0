package core

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"notesapp/internal/types"
)

const (
	corsAllowMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsAllowHeaders = "Content-Type, Authorization, X-Request-ID"
	corsMaxAge       = "86400"
)

// statusRecorder remembers the first status written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (sr *statusRecorder) record(code int) {
	if !sr.wrote {
		sr.status = code
		sr.wrote = true
	}
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.record(code)
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	sr.record(http.StatusOK)
	return sr.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// Hijack is needed by the WebSocket upgrader. The recorded status is 101.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	sr.record(http.StatusSwitchingProtocols)
	return hj.Hijack()
}

// Recoverer turns a panic anywhere below it into a logged stack trace and a
// 500 error body. Mount it outermost.
func (s *Server) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			s.Logger.Error("panic recovered",
				"method", r.Method,
				"path", r.URL.Path,
				"panic", fmt.Sprint(rvr),
				"stack", string(debug.Stack()),
			)

			// The body holds only strings, so Marshal cannot fail here.
			body, _ := json.Marshal(errorBody(r, types.ErrCodeInternalUnexpected, "an unexpected error occurred", nil))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write(body)
		}()

		next.ServeHTTP(w, r)
	})
}

// RequestLogger writes one log line per request. Header values named in
// redactedHeaders (case-insensitive) are replaced with [REDACTED]. The level
// is Error for 5xx, Warn for 4xx and Info otherwise.
func RequestLogger(logger *slog.Logger, redactedHeaders []string) func(http.Handler) http.Handler {
	redact := make(map[string]bool, len(redactedHeaders))
	for _, h := range redactedHeaders {
		redact[http.CanonicalHeaderKey(h)] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			args := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
				"remote_addr", r.RemoteAddr,
			}
			if reqID := types.GetRequestID(r.Context()); reqID != "" {
				args = append(args, "request_id", reqID)
			}
			if len(r.Header) > 0 {
				headers := make([]any, 0, len(r.Header))
				for name, values := range r.Header {
					value := strings.Join(values, ", ")
					if redact[http.CanonicalHeaderKey(name)] {
						value = "[REDACTED]"
					}
					headers = append(headers, slog.String(name, value))
				}
				args = append(args, slog.Group("headers", headers...))
			}

			level := slog.LevelInfo
			switch {
			case rec.status >= 500:
				level = slog.LevelError
			case rec.status >= 400:
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "request completed", args...)
		})
	}
}

// MetricsMiddleware reports each request to s.Metrics, keyed by the matched
// chi route so reminder IDs never become dimensions. It is a no-op when
// s.Metrics is nil.
func (s *Server) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := newStatusRecorder(w)
		next.ServeHTTP(rec, r)

		s.Metrics.RecordRequest(r.Method, routePattern(r), strconv.Itoa(rec.status), time.Since(start))
	})
}

// routePattern returns the matched route, or the raw path outside chi.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// SecurityHeadersMiddleware sets nosniff, frame denial and the XSS filter
// header on every response.
func (s *Server) SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		next.ServeHTTP(w, r)
	})
}

// NewCORSMiddleware allows the listed origins, or any origin when the list
// contains "*". Preflight requests are answered with 204 and never reach
// the next handler.
func NewCORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	wildcard := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			wildcard = true
		}
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if wildcard {
				origin = "*"
			}

			if origin != "" && allowed[origin] {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", corsAllowMethods)
				h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				h.Set("Access-Control-Expose-Headers", "X-Request-ID")
				h.Set("Access-Control-Max-Age", corsMaxAge)
				h.Set("Access-Control-Allow-Credentials", "true")
				if !wildcard {
					h.Set("Vary", "Origin")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
