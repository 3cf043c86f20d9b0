// Package external holds the clients for the vendor APIs that reminder
// channels deliver through (SendGrid mail, the SMS gateway). Every outbound
// call goes through BaseClient for circuit breaking and retries.
package external

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"notesapp/internal/types"
)

const (
	userAgent = "NotesApp-Reminders/1.0"

	// Consecutive failures beyond this open the breaker.
	defaultTripThreshold = 5
)

// RetryPolicy bounds retries of 429 and 5xx responses.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy is three retries between 500ms and 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, MinWait: 500 * time.Millisecond, MaxWait: 10 * time.Second}
}

func (p RetryPolicy) clamp(d time.Duration) time.Duration {
	return min(max(d, p.MinWait), p.MaxWait)
}

// BaseClient sends vendor requests through a per-vendor circuit breaker so
// an outage at one provider does not stall the other channels.
type BaseClient struct {
	hc        *http.Client
	cb        *gobreaker.CircuitBreaker[*http.Response]
	policy    RetryPolicy
	userAgent string
	threshold uint32
	sleep     func(time.Duration)
	logger    *slog.Logger
}

// BaseClientOption configures a BaseClient.
type BaseClientOption func(*BaseClient)

// WithSleepFunc replaces the wait between retries. The replacement does not
// observe context cancellation.
func WithSleepFunc(fn func(time.Duration)) BaseClientOption {
	return func(c *BaseClient) { c.sleep = fn }
}

// WithTripThreshold sets how many consecutive failures open the breaker.
func WithTripThreshold(n uint32) BaseClientOption {
	return func(c *BaseClient) { c.threshold = n }
}

// WithLogger sets the logger for breaker state changes.
func WithLogger(l *slog.Logger) BaseClientOption {
	return func(c *BaseClient) { c.logger = l }
}

// NewBaseClient creates a BaseClient whose breaker is named name.
func NewBaseClient(httpClient *http.Client, name string, policy RetryPolicy, ua string, opts ...BaseClientOption) *BaseClient {
	c := &BaseClient{
		hc:        httpClient,
		policy:    policy,
		userAgent: ua,
		threshold: defaultTripThreshold,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.cb = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > c.threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// Do sends req, retrying 429 and 5xx responses with jittered backoff or the
// server's Retry-After. The context request ID is forwarded as X-Request-Id.
//
// Other statuses are returned to the caller, who closes the body. Exhausted
// retries, an open breaker and cancellation return a *types.AppError.
func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	if id := types.GetRequestID(req.Context()); id != "" {
		req.Header.Set("X-Request-Id", id)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to buffer request body", err)
		}
	}

	for attempt := 0; ; attempt++ {
		if body != nil {
			req.Body = io.NopCloser(bytes.NewReader(body))
			req.ContentLength = int64(len(body))
		}

		resp, err := c.cb.Execute(func() (*http.Response, error) {
			r, err := c.hc.Do(req)
			if err != nil {
				return nil, err
			}
			if retryableStatus(r.StatusCode) {
				return r, fmt.Errorf("upstream returned %d", r.StatusCode)
			}
			return r, nil
		})
		if err == nil {
			return resp, nil
		}

		if breakerRejected(err) || attempt >= c.policy.MaxRetries {
			if resp != nil {
				_ = resp.Body.Close()
			}
			return nil, c.mapFailure(resp, err)
		}

		wait := c.backoff(attempt, resp)
		if resp != nil {
			_ = resp.Body.Close()
		}
		if werr := c.pause(req.Context(), wait); werr != nil {
			return nil, types.NewAppError(types.ErrCodeUpstreamUnavailable, "request cancelled while waiting to retry", werr)
		}
	}
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func breakerRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func (c *BaseClient) pause(ctx context.Context, d time.Duration) error {
	if c.sleep != nil {
		c.sleep(d)
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoff honours Retry-After (seconds or HTTP date) capped at MaxWait, and
// otherwise picks a random wait in [MinWait, MinWait*2^attempt].
func (c *BaseClient) backoff(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				return c.policy.clamp(time.Duration(secs) * time.Second)
			}
			if at, err := http.ParseTime(ra); err == nil {
				return c.policy.clamp(time.Until(at))
			}
		}
	}

	ceiling := c.policy.clamp(c.policy.MinWait << attempt)
	if ceiling <= c.policy.MinWait {
		return c.policy.MinWait
	}
	return c.policy.MinWait + rand.N(ceiling-c.policy.MinWait)
}

func (c *BaseClient) mapFailure(resp *http.Response, err error) *types.AppError {
	switch {
	case breakerRejected(err):
		return types.NewAppError(types.ErrCodeUpstreamRateLimited, "circuit breaker is open; upstream service unavailable", err)
	case resp != nil && resp.StatusCode == http.StatusTooManyRequests:
		return types.NewAppError(types.ErrCodeUpstreamRateLimited, "upstream rate limit exceeded", err)
	case resp != nil && resp.StatusCode >= 500:
		return types.NewAppError(types.ErrCodeUpstreamUnavailable,
			fmt.Sprintf("upstream returned %d after retries", resp.StatusCode), err)
	default:
		return types.NewAppError(types.ErrCodeInternalUnexpected, "upstream request failed", err)
	}
}
