// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package formatstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ManuGH/streamres/internal/format"
	"github.com/ManuGH/streamres/internal/log"
)

const redisKeyPrefix = "fmt:"

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore implements Store with JSON values under fmt:<contentID>.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects and pings the server.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("format store: redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("format store: redis connection failed: %w", err)
	}

	logger := log.WithComponent("formatstore")
	logger.Info().
		Str(log.FieldEvent, "formatstore.redis_connected").
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("connected to redis format store")

	return newRedisStore(client), nil
}

func newRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, contentID string, d format.Descriptor) error {
	raw, err := json.Marshal(d.WithoutURL())
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKeyPrefix+contentID, raw, 0).Err()
}

func (s *RedisStore) Get(ctx context.Context, contentID string) (format.Descriptor, bool, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+contentID).Bytes()
	if errors.Is(err, redis.Nil) {
		return format.Descriptor{}, false, nil
	}
	if err != nil {
		return format.Descriptor{}, false, err
	}
	var d format.Descriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return format.Descriptor{}, false, fmt.Errorf("format store: decode %s: %w", contentID, err)
	}
	return d, true, nil
}

// Check pings the server.
func (s *RedisStore) Check(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
