// Package health runs dependency probes for the liveness and readiness
// endpoints. A failing critical dependency takes the service down; a failing
// optional one (cache, analytics broker) only degrades it.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"
	"sync"
	"time"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Check probes a single dependency.
type Check func(ctx context.Context) ComponentHealth

// ComponentHealth is the result of one check.
type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Report aggregates every registered check.
type Report struct {
	Service    string                     `json:"service"`
	Status     Status                     `json:"status"`
	Uptime     string                     `json:"uptime"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

type Checker struct {
	service string
	started time.Time
	timeout time.Duration
	checks  map[string]Check
	mu      sync.RWMutex
	logger  *slog.Logger
}

func NewChecker(service string) *Checker {
	return &Checker{
		service: service,
		started: time.Now(),
		timeout: 5 * time.Second,
		checks:  make(map[string]Check),
		logger:  slog.Default().With("component", "health"),
	}
}

// Register adds or replaces a named check.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Ping adapts an error-returning probe. A failure reports StatusDown.
func Ping(probe func(ctx context.Context) error) Check {
	return func(ctx context.Context) ComponentHealth {
		if err := probe(ctx); err != nil {
			return ComponentHealth{Status: StatusDown, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

// Optional downgrades a failing check from down to degraded.
func Optional(check Check) Check {
	return func(ctx context.Context) ComponentHealth {
		result := check(ctx)
		if result.Status == StatusDown {
			result.Status = StatusDegraded
		}
		return result
	}
}

// Run executes all checks concurrently. The overall status is the worst
// component status.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := maps.Clone(c.checks)
	c.mu.RUnlock()

	report := Report{
		Service:    c.service,
		Status:     StatusUp,
		Uptime:     time.Since(c.started).Round(time.Second).String(),
		Components: make(map[string]ComponentHealth, len(checks)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for name, check := range checks {
		wg.Go(func() {
			start := time.Now()
			result := check(ctx)
			result.Latency = time.Since(start).Round(time.Millisecond).String()
			mu.Lock()
			report.Components[name] = result
			mu.Unlock()
		})
	}
	wg.Wait()

	for name, comp := range report.Components {
		switch comp.Status {
		case StatusDown:
			report.Status = StatusDown
		case StatusDegraded:
			if report.Status == StatusUp {
				report.Status = StatusDegraded
			}
		}
		if comp.Status != StatusUp {
			c.logger.Warn("health check failing", "check", name, "status", comp.Status, "message", comp.Message)
		}
	}
	return report
}

// LiveHandler reports that the process is serving.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.write(w, http.StatusOK, map[string]string{
			"status":  "alive",
			"service": c.service,
			"uptime":  time.Since(c.started).Round(time.Second).String(),
		})
	}
}

// ReadyHandler answers 200 while no critical dependency is down. A degraded
// service still takes traffic.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
		defer cancel()
		report := c.Run(ctx)
		status := http.StatusOK
		if report.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		c.write(w, status, report)
	}
}

func (c *Checker) write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		c.logger.Error("failed to write health response", "error", err)
	}
}
