// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ManuGH/streamres/internal/format"
	platformnet "github.com/ManuGH/streamres/internal/platform/net"
)

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Validate checks cross-field constraints of cfg.
func Validate(cfg AppConfig) error {
	v := &ValidationError{}
	add := func(format string, args ...any) {
		v.Problems = append(v.Problems, fmt.Sprintf(format, args...))
	}

	if _, err := format.ParseTier(cfg.Quality); err != nil {
		add("quality: %v", err)
	}

	if cfg.Catalog.BaseURL == "" {
		add("catalog.baseURL is required")
	} else if _, ok := platformnet.ParseDirectHTTPURL(cfg.Catalog.BaseURL); !ok {
		add("catalog.baseURL %q is not an absolute URL", platformnet.SanitizeURL(cfg.Catalog.BaseURL))
	}
	if cfg.PublicURL != "" {
		if _, ok := platformnet.ParseDirectHTTPURL(cfg.PublicURL); !ok {
			add("publicURL %q must be an http(s) URL without credentials", cfg.PublicURL)
		}
	}
	if cfg.Catalog.RateLimit <= 0 {
		add("catalog.rateLimit must be positive")
	}
	if cfg.Catalog.BreakerThreshold < 1 {
		add("catalog.breakerThreshold must be at least 1")
	}

	switch strings.ToLower(cfg.Proxy.Type) {
	case "", "none":
	case "http", "socks5":
		if cfg.Proxy.Host == "" || cfg.Proxy.Port <= 0 || cfg.Proxy.Port > 65535 {
			add("proxy.host and proxy.port are required for proxy type %q", cfg.Proxy.Type)
		}
	default:
		add("proxy.type %q unsupported (none, http, socks5)", cfg.Proxy.Type)
	}

	if cfg.Resolver.WindowBytes <= 0 {
		add("resolver.windowBytes must be positive")
	}
	if cfg.Resolver.MemoCapacity < 1 {
		add("resolver.memoCapacity must be at least 1")
	}

	switch cfg.Cache.Backend {
	case "disk", "memory":
	default:
		add("cache.backend %q unsupported (disk, memory)", cfg.Cache.Backend)
	}

	switch cfg.Store.Backend {
	case "sqlite", "memory":
	case "redis":
		if cfg.Store.RedisAddr == "" {
			add("store.redisAddr is required for the redis backend")
		}
	default:
		add("store.backend %q unsupported (sqlite, memory, redis)", cfg.Store.Backend)
	}

	if cfg.Continuation.MaxDepth < 1 {
		add("continuation.maxDepth must be at least 1")
	}
	if cfg.Download.MaxParallel < 1 {
		add("download.maxParallel must be at least 1")
	}
	if cfg.API.RateLimit < 0 {
		add("api.rateLimit must not be negative")
	}

	if cfg.Telemetry.Enabled {
		switch cfg.Telemetry.Exporter {
		case "grpc", "http":
		default:
			add("telemetry.exporter %q unsupported (grpc, http)", cfg.Telemetry.Exporter)
		}
		if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
			add("telemetry.samplingRate must be within [0,1]")
		}
	}

	if len(v.Problems) == 0 {
		return nil
	}
	return v
}

// IsValidationError reports whether err carries a ValidationError.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
