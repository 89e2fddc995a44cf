// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/streamres/internal/config"
)

type staticChecker struct {
	name   string
	result CheckResult
}

func (c staticChecker) Name() string { return c.name }
func (c staticChecker) Check(context.Context) CheckResult { return c.result }

func TestHealth_NonVerboseSkipsChecks(t *testing.T) {
	m := NewManager("v1")
	m.RegisterChecker(staticChecker{"store", CheckResult{Status: StatusUnhealthy}})

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Nil(t, resp.Checks)
	assert.Equal(t, "v1", resp.Version)
}

func TestReady_Aggregation(t *testing.T) {
	tests := []struct {
		name      string
		results   []Status
		wantReady bool
		want      Status
	}{
		{"none", nil, true, StatusHealthy},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, true, StatusHealthy},
		{"degraded stays ready", []Status{StatusHealthy, StatusDegraded}, true, StatusDegraded},
		{"unhealthy wins", []Status{StatusDegraded, StatusUnhealthy}, false, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("")
			for i, s := range tt.results {
				m.RegisterChecker(staticChecker{string(rune('a' + i)), CheckResult{Status: s}})
			}
			resp := m.Ready(context.Background())
			assert.Equal(t, tt.wantReady, resp.Ready)
			assert.Equal(t, tt.want, resp.Status)
			assert.Len(t, resp.Checks, len(tt.results))
		})
	}
}

func TestServeReady_StatusCodes(t *testing.T) {
	m := NewManager("")
	m.RegisterChecker(NewFuncChecker("format_store", func(context.Context) error {
		return errors.New("database is locked")
	}))

	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Ready)
	assert.Equal(t, "database is locked", body.Checks["format_store"].Error)

	rec = httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBreakerChecker(t *testing.T) {
	state := "closed"
	c := NewBreakerChecker("catalog", func() string { return state })
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)

	state = "open"
	assert.Equal(t, StatusDegraded, c.Check(context.Background()).Status)

	state = "half-open"
	assert.Equal(t, StatusDegraded, c.Check(context.Background()).Status)
}

func TestPerformStartupChecks(t *testing.T) {
	root := t.TempDir()
	cfg := config.Defaults()
	cfg.DataDir = filepath.Join(root, "data")
	cfg.Cache.Dir = filepath.Join(root, "data", "rangecache")
	cfg.Download.ExportDir = filepath.Join(root, "exports")

	require.NoError(t, PerformStartupChecks(context.Background(), cfg))
	for _, dir := range []string{cfg.DataDir, cfg.Cache.Dir, cfg.Download.ExportDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestPerformStartupChecks_Failures(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	cfg := config.Defaults()
	cfg.DataDir = file
	require.Error(t, PerformStartupChecks(context.Background(), cfg))

	cfg = config.Defaults()
	cfg.DataDir = root
	cfg.Cache.Dir = filepath.Join(root, "cache")
	cfg.API.ListenAddr = "localhost"
	require.ErrorContains(t, PerformStartupChecks(context.Background(), cfg), "invalid listen address")
}
