// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package formatstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/streamres/internal/format"
)

func sample() format.Descriptor {
	return format.Descriptor{
		Itag:          141,
		MimeType:      "audio/mp4",
		Bitrate:       format.Int64(256000),
		ContentLength: format.Int64(5_000_000),
		LastModified:  format.Int64(1700000000000),
		LoudnessDB:    format.Float64(-6.25),
		URL:           format.String("https://cdn.example/expiring"),
	}
}

func backends(t *testing.T) map[string]Store {
	t.Helper()

	sq, err := NewSqliteStore(filepath.Join(t.TempDir(), "formats.sqlite"))
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rs := newRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sq,
		"redis":  rs,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStore_PutGetStripsURL(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, "abc", sample()))

			got, ok, err := s.Get(ctx, "abc")
			require.NoError(t, err)
			require.True(t, ok)
			if diff := cmp.Diff(sample().WithoutURL(), got); diff != "" {
				t.Fatalf("descriptor mismatch (-want +got):\n%s", diff)
			}
			assert.Nil(t, got.URL)
		})
	}
}

func TestStore_Miss(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get(context.Background(), "missing")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, "abc", sample()))
			next := format.Descriptor{Itag: 251, MimeType: "audio/webm"}
			require.NoError(t, s.Put(ctx, "abc", next))

			got, ok, err := s.Get(ctx, "abc")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, next, got)
		})
	}
}

func TestSqliteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "formats.sqlite")
	s, err := NewSqliteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), "abc", sample()))
	require.NoError(t, s.Check(context.Background()))
	require.NoError(t, s.Close())

	s, err = NewSqliteStore(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	got, ok, err := s.Get(context.Background(), "abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(5_000_000), got.Length())
}

func TestRedisStore_KeyLayout(t *testing.T) {
	mr := miniredis.RunT(t)
	s := newRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Put(context.Background(), "abc", sample()))
	raw, err := mr.Get("fmt:abc")
	require.NoError(t, err)
	assert.NotContains(t, raw, "expiring")
	assert.Contains(t, raw, `"itag":141`)
}

func TestMemoryStore_NoAliasing(t *testing.T) {
	s := NewMemoryStore()
	d := sample()
	require.NoError(t, s.Put(context.Background(), "abc", d))
	*d.ContentLength = 1

	got, _, _ := s.Get(context.Background(), "abc")
	assert.Equal(t, int64(5_000_000), got.Length())
}

func TestNewStore_Backends(t *testing.T) {
	s, err := NewStore(Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = NewStore(Config{Backend: "sqlite", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &SqliteStore{}, s)
	require.NoError(t, s.Close())

	mr := miniredis.RunT(t)
	s, err = NewStore(Config{Backend: "redis", RedisAddr: mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)
	require.NoError(t, s.Close())

	_, err = NewStore(Config{Backend: "bolt"})
	require.Error(t, err)

	_, err = NewStore(Config{Backend: "redis"})
	require.Error(t, err)
}
