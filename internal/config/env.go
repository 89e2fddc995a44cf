// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/streamres/internal/log"
	"github.com/rs/zerolog"
)

// EnvPrefix prefixes every environment key read by the loader.
const EnvPrefix = "STREAMRES_"

func sensitive(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "token") || strings.Contains(k, "password")
}

// lookup returns the raw value of key when it is set and non-empty.
func lookup(logger zerolog.Logger, key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", false
	}
	ev := logger.Debug().Str("key", key).Str("source", "environment")
	if sensitive(key) {
		ev.Bool("sensitive", true)
	} else {
		ev.Str("value", v)
	}
	ev.Msg("using environment variable")
	return v, true
}

func invalid(logger zerolog.Logger, key, value string, err error) {
	logger.Warn().
		Err(err).
		Str(log.FieldEvent, "config.env_invalid").
		Str("key", key).
		Str("value", value).
		Msg("invalid environment value, keeping previous value")
}

// ParseString reads a string from the environment or returns defaultValue.
func ParseString(key, defaultValue string) string {
	if v, ok := lookup(log.WithComponent("config"), key); ok {
		return v
	}
	return defaultValue
}

// ParseInt reads an integer from the environment. Parse errors fall back to
// defaultValue.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		invalid(logger, key, v, err)
		return defaultValue
	}
	return i
}

func ParseInt64(key string, defaultValue int64) int64 {
	logger := log.WithComponent("config")
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		invalid(logger, key, v, err)
		return defaultValue
	}
	return i
}

func ParseFloat(key string, defaultValue float64) float64 {
	logger := log.WithComponent("config")
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		invalid(logger, key, v, err)
		return defaultValue
	}
	return f
}

// ParseBool accepts the forms understood by strconv.ParseBool.
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		invalid(logger, key, v, err)
		return defaultValue
	}
	return b
}

func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := log.WithComponent("config")
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		invalid(logger, key, v, err)
		return defaultValue
	}
	return d
}

// applyEnv overlays STREAMRES_* variables onto cfg.
func applyEnv(cfg *AppConfig) {
	p := func(s string) string { return EnvPrefix + s }

	cfg.DataDir = ParseString(p("DATA_DIR"), cfg.DataDir)
	cfg.LogLevel = ParseString(p("LOG_LEVEL"), cfg.LogLevel)
	cfg.Quality = ParseString(p("QUALITY"), cfg.Quality)
	cfg.PublicURL = ParseString(p("PUBLIC_URL"), cfg.PublicURL)

	cfg.Catalog.BaseURL = ParseString(p("CATALOG_BASE_URL"), cfg.Catalog.BaseURL)
	cfg.Catalog.ClientName = ParseString(p("CATALOG_CLIENT_NAME"), cfg.Catalog.ClientName)
	cfg.Catalog.ClientVersion = ParseString(p("CATALOG_CLIENT_VERSION"), cfg.Catalog.ClientVersion)
	cfg.Catalog.Timeout = ParseDuration(p("CATALOG_TIMEOUT"), cfg.Catalog.Timeout)
	cfg.Catalog.RateLimit = ParseFloat(p("CATALOG_RATE_LIMIT"), cfg.Catalog.RateLimit)
	cfg.Catalog.Burst = ParseInt(p("CATALOG_BURST"), cfg.Catalog.Burst)
	cfg.Catalog.BreakerThreshold = ParseInt(p("CATALOG_BREAKER_THRESHOLD"), cfg.Catalog.BreakerThreshold)
	cfg.Catalog.BreakerReset = ParseDuration(p("CATALOG_BREAKER_RESET"), cfg.Catalog.BreakerReset)

	cfg.Proxy.Type = ParseString(p("PROXY_TYPE"), cfg.Proxy.Type)
	cfg.Proxy.Host = ParseString(p("PROXY_HOST"), cfg.Proxy.Host)
	cfg.Proxy.Port = ParseInt(p("PROXY_PORT"), cfg.Proxy.Port)

	cfg.Resolver.WindowBytes = ParseInt64(p("WINDOW_BYTES"), cfg.Resolver.WindowBytes)
	cfg.Resolver.ResolveTimeout = ParseDuration(p("RESOLVE_TIMEOUT"), cfg.Resolver.ResolveTimeout)
	cfg.Resolver.MemoCapacity = ParseInt(p("MEMO_CAPACITY"), cfg.Resolver.MemoCapacity)

	cfg.Cache.Backend = ParseString(p("CACHE_BACKEND"), cfg.Cache.Backend)
	cfg.Cache.Dir = ParseString(p("CACHE_DIR"), cfg.Cache.Dir)

	cfg.Store.Backend = ParseString(p("STORE_BACKEND"), cfg.Store.Backend)
	cfg.Store.RedisAddr = ParseString(p("REDIS_ADDR"), cfg.Store.RedisAddr)
	cfg.Store.RedisPassword = ParseString(p("REDIS_PASSWORD"), cfg.Store.RedisPassword)
	cfg.Store.RedisDB = ParseInt(p("REDIS_DB"), cfg.Store.RedisDB)

	cfg.Continuation.MaxDepth = ParseInt(p("CONTINUATION_MAX_DEPTH"), cfg.Continuation.MaxDepth)
	cfg.Continuation.PlaylistTTL = ParseDuration(p("PLAYLIST_TTL"), cfg.Continuation.PlaylistTTL)

	cfg.Download.MaxParallel = ParseInt(p("DOWNLOAD_MAX_PARALLEL"), cfg.Download.MaxParallel)
	cfg.Download.ChunkBytes = ParseInt64(p("DOWNLOAD_CHUNK_BYTES"), cfg.Download.ChunkBytes)
	cfg.Download.ExportDir = ParseString(p("DOWNLOAD_EXPORT_DIR"), cfg.Download.ExportDir)

	cfg.API.ListenAddr = ParseString(p("LISTEN_ADDR"), cfg.API.ListenAddr)
	cfg.API.RateLimit = ParseInt(p("API_RATE_LIMIT"), cfg.API.RateLimit)
	cfg.API.ShutdownTimeout = ParseDuration(p("SHUTDOWN_TIMEOUT"), cfg.API.ShutdownTimeout)

	cfg.Telemetry.Enabled = ParseBool(p("TELEMETRY_ENABLED"), cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = ParseString(p("TELEMETRY_EXPORTER"), cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString(p("TELEMETRY_ENDPOINT"), cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat(p("TELEMETRY_SAMPLING_RATE"), cfg.Telemetry.SamplingRate)
	cfg.Telemetry.Environment = ParseString(p("TELEMETRY_ENVIRONMENT"), cfg.Telemetry.Environment)
}
