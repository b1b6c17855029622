// Package health reports whether the tools a scan step needs are available.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/exec"
	"sync"
	"time"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is fully operational.
	StatusHealthy Status = "healthy"
	// StatusDegraded indicates an optional component is missing.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy indicates a required component is missing.
	StatusUnhealthy Status = "unhealthy"
)

// ComponentStatus represents the health status of a single component.
type ComponentStatus struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Response represents the health check response.
type Response struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentStatus `json:"components"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
}

// Pinger is an interface for components that can be pinged.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ToolPinger checks that an executable can be found.
type ToolPinger struct {
	Binary string
}

// Ping implements Pinger.
func (t ToolPinger) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := exec.LookPath(t.Binary)
	return err
}

type component struct {
	name     string
	pinger   Pinger
	required bool
}

// Checker runs every registered component check.
type Checker struct {
	components []component
	startTime  time.Time
	version    string
	timeout    time.Duration
	mu         sync.RWMutex
}

// NewChecker creates a new health checker.
func NewChecker(version string) *Checker {
	return &Checker{
		startTime: time.Now(),
		version:   version,
		timeout:   5 * time.Second,
	}
}

// Add registers a component. A failing required component makes the whole
// check unhealthy; a failing optional one only degrades it.
func (c *Checker) Add(name string, pinger Pinger, required bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components = append(c.components, component{name: name, pinger: pinger, required: required})
}

// SetTimeout sets the timeout for health checks.
func (c *Checker) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// Check performs all health checks and returns the aggregated response.
func (c *Checker) Check(ctx context.Context) *Response {
	c.mu.RLock()
	timeout := c.timeout
	components := append([]component(nil), c.components...)
	c.mu.RUnlock()

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	statuses := make(map[string]ComponentStatus, len(components))
	overall := StatusHealthy
	for _, comp := range components {
		st := checkComponent(checkCtx, comp)
		statuses[comp.name] = st
		switch {
		case st.Status == StatusUnhealthy:
			overall = StatusUnhealthy
		case st.Status == StatusDegraded && overall == StatusHealthy:
			overall = StatusDegraded
		}
	}

	return &Response{
		Status:     overall,
		Components: statuses,
		Version:    c.version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
	}
}

func checkComponent(ctx context.Context, comp component) ComponentStatus {
	failed := StatusDegraded
	if comp.required {
		failed = StatusUnhealthy
	}
	if comp.pinger == nil {
		return ComponentStatus{Status: failed, Message: "not configured"}
	}
	if err := comp.pinger.Ping(ctx); err != nil {
		return ComponentStatus{Status: failed, Message: fmt.Sprintf("%s check failed: %v", comp.name, err)}
	}
	return ComponentStatus{Status: StatusHealthy, Message: "available"}
}

// Handler returns an HTTP handler for health checks.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := c.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if response.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(response)
	}
}
