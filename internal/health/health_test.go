// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func passing(name string) Checker {
	return CheckerFunc{CheckerName: name, Fn: func(context.Context) CheckResult {
		return CheckResult{Status: StatusHealthy}
	}}
}

func failing(name string, err error) Checker {
	return CheckerFunc{CheckerName: name, Fn: func(context.Context) CheckResult {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}}
}

func TestHealthAlwaysAlive(t *testing.T) {
	m := NewManager("v1")
	m.Register(failing("store", errors.New("redis down")))

	resp := m.Health(context.Background())
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1", resp.Version)
}

func TestReadyRequiresAllChecks(t *testing.T) {
	m := NewManager("v1")
	m.Register(passing("store"))
	m.Register(passing("worker"))

	resp := m.Ready(context.Background())
	assert.True(t, resp.Ready)

	m.Register(failing("engines", errors.New("warmup pending")))
	resp = m.Ready(context.Background())
	assert.False(t, resp.Ready)
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Equal(t, "warmup pending", resp.Checks["engines"].Error)
}

func TestReadyNoCheckers(t *testing.T) {
	resp := NewManager("").Ready(context.Background())
	assert.True(t, resp.Ready)
	assert.Nil(t, resp.Checks)
}
