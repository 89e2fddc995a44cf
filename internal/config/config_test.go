// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimal = `
catalog:
  baseURL: https://catalog.example/youtubei/v1
`

func TestLoad_DefaultsAndFile(t *testing.T) {
	path := writeConfig(t, minimal+`
quality: high
resolver:
  windowBytes: 4096
download:
  maxParallel: 3
`)
	cfg, err := NewLoader(path, "v1.2.3").Load()
	require.NoError(t, err)

	assert.Equal(t, "v1.2.3", cfg.Version)
	assert.Equal(t, "high", cfg.Quality)
	assert.Equal(t, int64(4096), cfg.Resolver.WindowBytes)
	assert.Equal(t, 3, cfg.Download.MaxParallel)
	// untouched sections keep defaults
	assert.Equal(t, 2, cfg.Resolver.MemoCapacity)
	assert.Equal(t, 50, cfg.Continuation.MaxDepth)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, filepath.Join(cfg.DataDir, "rangecache"), cfg.Cache.Dir)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, minimal+"quality: high\n")
	t.Setenv("STREAMRES_QUALITY", "low")
	t.Setenv("STREAMRES_WINDOW_BYTES", "2048")
	t.Setenv("STREAMRES_RESOLVE_TIMEOUT", "3s")
	t.Setenv("STREAMRES_TELEMETRY_ENABLED", "true")

	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)
	assert.Equal(t, "low", cfg.Quality)
	assert.Equal(t, int64(2048), cfg.Resolver.WindowBytes)
	assert.Equal(t, 3*time.Second, cfg.Resolver.ResolveTimeout)
	assert.True(t, cfg.Telemetry.Enabled)
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("STREAMRES_CATALOG_BASE_URL", "http://127.0.0.1:9000")
	cfg, err := NewLoader("", "").Load()
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000", cfg.Catalog.BaseURL)
}

func TestLoad_InvalidEnvKeepsPrevious(t *testing.T) {
	path := writeConfig(t, minimal)
	t.Setenv("STREAMRES_WINDOW_BYTES", "lots")
	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults().Resolver.WindowBytes, cfg.Resolver.WindowBytes)
}

func TestLoad_StrictParsing(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown field", minimal + "owiBase: http://x\n", "strict config parse error"},
		{"multiple documents", minimal + "---\nquality: low\n", "multiple documents"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(writeConfig(t, tt.body), "").Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_RejectsNonYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	_, err := NewLoader(path, "").Load()
	require.ErrorContains(t, err, "only YAML supported")
}

func TestValidate(t *testing.T) {
	valid := Defaults()
	valid.Catalog.BaseURL = "https://catalog.example"
	require.NoError(t, Validate(valid))

	tests := []struct {
		name   string
		mutate func(*AppConfig)
		want   string
	}{
		{"tier", func(c *AppConfig) { c.Quality = "ultra" }, "quality"},
		{"base url", func(c *AppConfig) { c.Catalog.BaseURL = "catalog" }, "catalog.baseURL"},
		{"proxy type", func(c *AppConfig) { c.Proxy.Type = "ftp" }, "proxy.type"},
		{"proxy host", func(c *AppConfig) { c.Proxy.Type = "socks5" }, "proxy.host"},
		{"window", func(c *AppConfig) { c.Resolver.WindowBytes = 0 }, "windowBytes"},
		{"memo", func(c *AppConfig) { c.Resolver.MemoCapacity = 0 }, "memoCapacity"},
		{"cache backend", func(c *AppConfig) { c.Cache.Backend = "s3" }, "cache.backend"},
		{"redis addr", func(c *AppConfig) { c.Store.Backend = "redis" }, "redisAddr"},
		{"exporter", func(c *AppConfig) { c.Telemetry.Enabled = true; c.Telemetry.Exporter = "zipkin" }, "exporter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	cfg := Defaults()
	cfg.Catalog.BaseURL = "https://catalog.example"
	cfg.Quality = "medium"
	cfg.Version = "ignored"

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, Save(path, cfg))

	got, err := NewLoader(path, "v2").Load()
	require.NoError(t, err)
	assert.Equal(t, "medium", got.Quality)
	assert.Equal(t, "v2", got.Version)
}

func TestHolder_ApplyPersistsAndNotifies(t *testing.T) {
	path := writeConfig(t, minimal)
	loader := NewLoader(path, "v1")
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader, path)
	ch := make(chan AppConfig, 1)
	h.RegisterListener(ch)

	next, err := h.Apply(context.Background(), func(c *AppConfig) { c.Quality = "low" })
	require.NoError(t, err)
	assert.Equal(t, "low", next.Quality)
	assert.Equal(t, "v1", next.Version)
	assert.Equal(t, "low", (<-ch).Quality)

	reloaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "low", reloaded.Quality)
}

func TestHolder_ApplyRejectsInvalid(t *testing.T) {
	initial := Defaults()
	initial.Catalog.BaseURL = "https://catalog.example"
	h := NewHolder(initial, NewLoader("", ""), "")

	_, err := h.Apply(context.Background(), func(c *AppConfig) { c.Quality = "ultra" })
	require.Error(t, err)
	assert.Equal(t, "auto", h.Get().Quality)
}

func TestHolder_ReloadKeepsPreviousOnError(t *testing.T) {
	path := writeConfig(t, minimal)
	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)
	h := NewHolder(initial, loader, path)

	require.NoError(t, os.WriteFile(path, []byte(minimal+"quality: ultra\n"), 0o600))
	require.Error(t, h.Reload(context.Background()))
	assert.Equal(t, "auto", h.Get().Quality)
}

func TestHolder_FullListenerDoesNotBlock(t *testing.T) {
	initial := Defaults()
	initial.Catalog.BaseURL = "https://catalog.example"
	h := NewHolder(initial, NewLoader("", ""), "")
	ch := make(chan AppConfig) // unbuffered, never read
	h.RegisterListener(ch)

	_, err := h.Apply(context.Background(), func(c *AppConfig) { c.Quality = "high" })
	require.NoError(t, err)
	assert.Equal(t, "high", h.Get().Quality)
}

func TestHolder_WatcherReloads(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := writeConfig(t, minimal)
	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader, path)
	ch := make(chan AppConfig, 4)
	h.RegisterListener(ch)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, h.StartWatcher(ctx))

	require.NoError(t, os.WriteFile(path, []byte(minimal+"quality: medium\n"), 0o600))

	select {
	case cfg := <-ch:
		assert.Equal(t, "medium", cfg.Quality)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not publish reloaded config")
	}

	cancel()
	h.Stop()
}
