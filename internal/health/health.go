// SPDX-License-Identifier: MIT

// Package health provides liveness and readiness checks for probes.
package health

import (
	"context"
	"time"
)

// Status represents the overall health/readiness status.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the result of a component health check.
type CheckResult struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Checker is a named component health check.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc struct {
	CheckerName string
	Fn          func(ctx context.Context) CheckResult
}

func (c CheckerFunc) Name() string                          { return c.CheckerName }
func (c CheckerFunc) Check(ctx context.Context) CheckResult { return c.Fn(ctx) }

// Response is the body of both probe endpoints.
type Response struct {
	Status    Status                 `json:"status"`
	Ready     bool                   `json:"ready"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Manager aggregates component checks for the probe endpoints.
type Manager struct {
	version  string
	checkers []Checker
}

// NewManager creates a health check manager.
func NewManager(version string) *Manager {
	return &Manager{version: version}
}

// Register adds a component checker.
func (m *Manager) Register(c Checker) {
	m.checkers = append(m.checkers, c)
}

// Health is the liveness probe: the process is alive, component state is
// reported but never fails the probe.
func (m *Manager) Health(ctx context.Context) Response {
	resp := Response{
		Status:    StatusHealthy,
		Ready:     true,
		Version:   m.version,
		Timestamp: time.Now().UTC(),
	}
	resp.Checks = m.runChecks(ctx)
	return resp
}

// Ready is the readiness probe: every registered component must pass.
func (m *Manager) Ready(ctx context.Context) Response {
	resp := Response{
		Status:    StatusHealthy,
		Ready:     true,
		Version:   m.version,
		Timestamp: time.Now().UTC(),
	}
	resp.Checks = m.runChecks(ctx)
	for _, result := range resp.Checks {
		if result.Status != StatusHealthy {
			resp.Status = StatusUnhealthy
			resp.Ready = false
			break
		}
	}
	return resp
}

func (m *Manager) runChecks(ctx context.Context) map[string]CheckResult {
	if len(m.checkers) == 0 {
		return nil
	}
	checks := make(map[string]CheckResult, len(m.checkers))
	for _, c := range m.checkers {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		checks[c.Name()] = c.Check(checkCtx)
		cancel()
	}
	return checks
}
