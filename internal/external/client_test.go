package external

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"notesapp/internal/types"
)

func noopSleep(time.Duration) {}

func newTestClient(t *testing.T, policy RetryPolicy, opts ...BaseClientOption) *BaseClient {
	t.Helper()
	opts = append([]BaseClientOption{WithSleepFunc(noopSleep)}, opts...)
	return NewBaseClient(&http.Client{Timeout: 5 * time.Second}, "test-"+t.Name(), policy, "NotesApp-Test/1.0", opts...)
}

// scriptedServer answers with statuses in order and repeats the last one.
func scriptedServer(t *testing.T, statuses ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}
		w.WriteHeader(statuses[n])
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func get(t *testing.T, ctx context.Context, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	return req
}

var fastPolicy = RetryPolicy{MaxRetries: 2, MinWait: time.Millisecond, MaxWait: 10 * time.Millisecond}

func TestDo_RetrySequences(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantCalls int32
		wantCode  int
		wantErr   types.ErrorCode
	}{
		{"success first try", []int{200}, 1, 200, ""},
		{"500 then success", []int{500, 200}, 2, 200, ""},
		{"429 then success", []int{429, 201}, 2, 201, ""},
		{"503 twice then success", []int{503, 503, 200}, 3, 200, ""},
		{"4xx returned without retry", []int{422}, 1, 422, ""},
		{"5xx exhausted", []int{500}, 3, 0, types.ErrCodeUpstreamUnavailable},
		{"429 exhausted", []int{429}, 3, 0, types.ErrCodeUpstreamRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := scriptedServer(t, tt.statuses...)
			client := newTestClient(t, fastPolicy)

			resp, err := client.Do(get(t, context.Background(), srv.URL))

			if tt.wantErr != "" {
				if resp != nil {
					resp.Body.Close()
					t.Error("expected nil response on error")
				}
				if !types.IsErrorCode(err, tt.wantErr) {
					t.Fatalf("expected %s, got %v", tt.wantErr, err)
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				resp.Body.Close()
				if resp.StatusCode != tt.wantCode {
					t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantCode)
				}
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestDo_SetsHeaders(t *testing.T) {
	var gotID, gotUA string
	var sawID bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get("X-Request-Id")
		_, sawID = r.Header["X-Request-Id"]
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()
	client := newTestClient(t, fastPolicy)

	ctx := types.WithRequestID(context.Background(), "req_42")
	resp, err := client.Do(get(t, ctx, srv.URL))
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	resp.Body.Close()
	if gotID != "req_42" || gotUA != "NotesApp-Test/1.0" {
		t.Errorf("X-Request-Id=%q User-Agent=%q", gotID, gotUA)
	}

	resp, err = client.Do(get(t, context.Background(), srv.URL))
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	resp.Body.Close()
	if sawID {
		t.Error("X-Request-Id sent without a request ID in context")
	}
}

func TestDo_BodyReplayedOnRetry(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		n := len(bodies)
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()
	client := newTestClient(t, fastPolicy)

	const payload = `{"to":"+15550100","body":"Pay rent"}`
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodPost, srv.URL, strings.NewReader(payload))
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	resp.Body.Close()

	if len(bodies) != 2 || bodies[0] != payload || bodies[1] != payload {
		t.Errorf("bodies = %q", bodies)
	}
}

func TestDo_RetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"seconds", "2", 2 * time.Second},
		{"capped at MaxWait", "3600", 5 * time.Second},
		{"past date falls back to MinWait", time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat), 100 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) == 1 {
					w.Header().Set("Retry-After", tt.header)
					w.WriteHeader(http.StatusTooManyRequests)
				}
			}))
			defer srv.Close()

			var waits []time.Duration
			client := newTestClient(t,
				RetryPolicy{MaxRetries: 1, MinWait: 100 * time.Millisecond, MaxWait: 5 * time.Second},
				WithSleepFunc(func(d time.Duration) { waits = append(waits, d) }),
			)

			resp, err := client.Do(get(t, context.Background(), srv.URL))
			if err != nil {
				t.Fatalf("Do: %v", err)
			}
			resp.Body.Close()
			if len(waits) != 1 || waits[0] != tt.want {
				t.Errorf("waits = %v, want [%v]", waits, tt.want)
			}
		})
	}
}

func TestDo_BreakerOpensAfterThreshold(t *testing.T) {
	srv, calls := scriptedServer(t, http.StatusBadGateway)
	client := newTestClient(t, RetryPolicy{MaxRetries: 0, MinWait: time.Millisecond, MaxWait: time.Millisecond},
		WithTripThreshold(1))

	for range 2 {
		_, _ = client.Do(get(t, context.Background(), srv.URL))
	}
	before := calls.Load()

	resp, err := client.Do(get(t, context.Background(), srv.URL))
	if resp != nil {
		resp.Body.Close()
		t.Error("expected nil response while the breaker is open")
	}
	if !types.IsErrorCode(err, types.ErrCodeUpstreamRateLimited) {
		t.Fatalf("expected %s, got %v", types.ErrCodeUpstreamRateLimited, err)
	}
	if calls.Load() != before {
		t.Error("upstream called while the breaker is open")
	}
}

func TestDo_NetworkErrorIsAppError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := newTestClient(t, RetryPolicy{MaxRetries: 1, MinWait: time.Millisecond, MaxWait: time.Millisecond})
	_, err := client.Do(get(t, context.Background(), url))

	if !types.IsErrorCode(err, types.ErrCodeInternalUnexpected) {
		t.Fatalf("expected %s, got %v", types.ErrCodeInternalUnexpected, err)
	}
}

func TestDo_CancelDuringRetryWait(t *testing.T) {
	srv, calls := scriptedServer(t, http.StatusServiceUnavailable)
	// No sleep override: the real timer must observe cancellation.
	client := NewBaseClient(&http.Client{Timeout: 5 * time.Second}, "test-cancel",
		RetryPolicy{MaxRetries: 3, MinWait: time.Hour, MaxWait: time.Hour}, "NotesApp-Test/1.0")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Do(get(t, ctx, srv.URL))

	if !types.IsErrorCode(err, types.ErrCodeUpstreamUnavailable) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected cancelled upstream_unavailable, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("retry wait ignored cancellation")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestBackoff_WithinPolicyBounds(t *testing.T) {
	c := &BaseClient{policy: RetryPolicy{MinWait: 100 * time.Millisecond, MaxWait: 2 * time.Second}}
	for attempt := range 8 {
		d := c.backoff(attempt, nil)
		if d < c.policy.MinWait || d > c.policy.MaxWait {
			t.Errorf("attempt %d: %v outside [%v, %v]", attempt, d, c.policy.MinWait, c.policy.MaxWait)
		}
	}
}

func TestMapFailure(t *testing.T) {
	c := &BaseClient{}
	tests := []struct {
		name string
		resp *http.Response
		err  error
		want types.ErrorCode
	}{
		{"breaker open", nil, gobreaker.ErrOpenState, types.ErrCodeUpstreamRateLimited},
		{"half-open limit", nil, gobreaker.ErrTooManyRequests, types.ErrCodeUpstreamRateLimited},
		{"429", &http.Response{StatusCode: 429}, fmt.Errorf("upstream returned 429"), types.ErrCodeUpstreamRateLimited},
		{"500", &http.Response{StatusCode: 500}, fmt.Errorf("upstream returned 500"), types.ErrCodeUpstreamUnavailable},
		{"transport", nil, errors.New("connection reset"), types.ErrCodeInternalUnexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.mapFailure(tt.resp, tt.err); got.Code != tt.want {
				t.Errorf("code = %s, want %s", got.Code, tt.want)
			}
		})
	}
}
