package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// healthCheckTimeout bounds the whole health check. A probe still running at
// the deadline is reported unhealthy.
const healthCheckTimeout = 2 * time.Second

var errProbeTimeout = errors.New("health check timed out")

// ChannelCounter reports how many channels are registered.
// The notification registry implements it.
type ChannelCounter interface {
	Count() int
}

// ChannelProbe fails while no delivery channel is registered.
type ChannelProbe struct {
	counter ChannelCounter
}

// NewChannelProbe creates a ChannelProbe.
func NewChannelProbe(counter ChannelCounter) *ChannelProbe {
	return &ChannelProbe{counter: counter}
}

// Name implements HealthProbe.
func (p *ChannelProbe) Name() string { return "channels" }

// Check implements HealthProbe.
func (p *ChannelProbe) Check(context.Context) error {
	if p.counter.Count() == 0 {
		return errors.New("no notification channels registered")
	}
	return nil
}

type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components,omitempty"`
}

// HandleHealth serves GET /health. Probes run in parallel; the response is
// 200 when every probe passes and 503 otherwise.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	probes := s.HealthProbes
	if len(probes) == 0 {
		JSON(w, r, http.StatusOK, healthResponse{Status: "healthy"})
		return
	}

	type outcome struct {
		idx int
		err error
	}
	// Buffered so a probe finishing after the deadline does not block.
	done := make(chan outcome, len(probes))
	for i, p := range probes {
		go func() {
			done <- outcome{idx: i, err: runProbe(ctx, p)}
		}()
	}

	errs := make([]error, len(probes))
	for i := range errs {
		errs[i] = errProbeTimeout
	}
	for pending := len(probes); pending > 0; pending-- {
		select {
		case o := <-done:
			errs[o.idx] = o.err
		case <-ctx.Done():
			pending = 0
		}
	}

	resp := healthResponse{
		Status:     "healthy",
		Components: make(map[string]componentStatus, len(probes)),
	}
	for i, p := range probes {
		if errs[i] != nil {
			resp.Status = "unhealthy"
			resp.Components[p.Name()] = componentStatus{Status: "unhealthy", Message: errs[i].Error()}
			continue
		}
		resp.Components[p.Name()] = componentStatus{Status: "healthy"}
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	JSON(w, r, status, resp)
}

func runProbe(ctx context.Context, p HealthProbe) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("probe panicked: %v", rec)
		}
	}()
	return p.Check(ctx)
}
