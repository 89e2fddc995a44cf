// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package formatstore persists the non-URL fields of the format chosen for a
// piece of content, so "is this fully downloaded" can be answered later
// without talking to the catalog.
package formatstore

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ManuGH/streamres/internal/format"
)

// Store is the durable format-metadata store. Put never persists the URL.
type Store interface {
	Put(ctx context.Context, contentID string, d format.Descriptor) error
	Get(ctx context.Context, contentID string) (format.Descriptor, bool, error)
	Close() error
}

// Config selects a backend.
type Config struct {
	Backend   string // sqlite|memory|redis
	Dir       string
	RedisAddr string
	RedisDB   int
	RedisPass string
}

// NewStore creates a store for the configured backend. The sqlite backend
// falls back to memory when no directory is configured.
func NewStore(cfg Config) (Store, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "sqlite":
		if cfg.Dir == "" {
			return NewMemoryStore(), nil
		}
		return NewSqliteStore(filepath.Join(cfg.Dir, "formats.sqlite"))
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPass, DB: cfg.RedisDB})
	default:
		return nil, fmt.Errorf("unknown format store backend: %s (supported: sqlite, memory, redis)", backend)
	}
}
