// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package playlist materializes catalog playlists by following continuation
// tokens and renders them as M3U.
package playlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/renameio/v2"
	"go.opentelemetry.io/otel/codes"

	"github.com/ManuGH/streamres/internal/cache"
	"github.com/ManuGH/streamres/internal/catalog"
	"github.com/ManuGH/streamres/internal/continuation"
	"github.com/ManuGH/streamres/internal/log"
	"github.com/ManuGH/streamres/internal/metrics"
	"github.com/ManuGH/streamres/internal/telemetry"
)

const (
	DefaultMaxDepth = 50
	defaultTTL      = 10 * time.Minute
)

// Catalog is the paged browse API.
type Catalog interface {
	Playlist(ctx context.Context, playlistID string) (continuation.Page[catalog.Track], error)
	Continuation(ctx context.Context, token string) (continuation.Page[catalog.Track], error)
}

// Playlist is a materialized list. Stop says why paging ended.
type Playlist struct {
	ID     string                  `json:"id"`
	Tracks []catalog.Track         `json:"tracks"`
	Pages  int                     `json:"pages"`
	Stop   continuation.StopReason `json:"stop"`
}

// Service loads playlists. Successful loads are cached for TTL; failed or
// cancelled loads return their partial result and are not cached.
type Service struct {
	catalog  Catalog
	cache    *cache.TTL[Playlist]
	maxDepth int
	ttl      time.Duration
}

// Options tunes a Service.
type Options struct {
	MaxDepth int
	TTL      time.Duration
}

func NewService(c Catalog, store *cache.TTL[Playlist], opts Options) *Service {
	s := &Service{catalog: c, cache: store, maxDepth: opts.MaxDepth, ttl: opts.TTL}
	if s.maxDepth <= 0 {
		s.maxDepth = DefaultMaxDepth
	}
	if s.ttl <= 0 {
		s.ttl = defaultTTL
	}
	return s
}

// Load returns the playlist, following at most MaxDepth continuation pages.
func (s *Service) Load(ctx context.Context, playlistID string) (Playlist, error) {
	if playlistID == "" {
		return Playlist{}, errors.New("playlist: id is required")
	}
	if s.cache != nil {
		if p, ok := s.cache.Get(playlistID); ok {
			return p, nil
		}
	}

	ctx, span := telemetry.Tracer("github.com/ManuGH/streamres/internal/playlist").Start(ctx, "playlist.load")
	defer span.End()

	logger := log.WithComponentFromContext(ctx, "playlist").With().
		Str(log.FieldPlaylistID, playlistID).Logger()

	seed, err := s.catalog.Playlist(ctx, playlistID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Playlist{ID: playlistID}, fmt.Errorf("playlist %q: first page: %w", playlistID, err)
	}

	res, err := continuation.FetchAllBy(ctx, seed, s.catalog.Continuation, s.maxDepth,
		func(t catalog.Track) string { return t.VideoID })
	metrics.RecordContinuation(string(res.Stop), res.Calls)

	p := Playlist{ID: playlistID, Tracks: res.Items, Pages: res.Calls + 1, Stop: res.Stop}
	span.SetAttributes(telemetry.ContinuationAttributes(playlistID, p.Pages, string(res.Stop))...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		logger.Warn().Err(err).
			Str(log.FieldEvent, "playlist.partial").
			Str(log.FieldStop, string(res.Stop)).
			Int("tracks", len(p.Tracks)).
			Msg("playlist load stopped early")
		return p, err
	}

	ev := logger.Info()
	if res.Stop == continuation.StopCycle || res.Stop == continuation.StopMaxDepth {
		ev = logger.Warn()
	}
	ev.Str(log.FieldEvent, "playlist.loaded").
		Str(log.FieldStop, string(res.Stop)).
		Int(log.FieldDepth, res.Calls).
		Int("tracks", len(p.Tracks)).
		Msg("playlist loaded")

	if s.cache != nil {
		s.cache.Set(playlistID, p, s.ttl)
	}
	return p, nil
}

// Export atomically writes items as M3U to path.
func Export(ctx context.Context, path string, items []Item) error {
	logger := log.FromContext(ctx)

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending M3U file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending M3U file")
		}
	}()

	if err := WriteM3U(pending, items); err != nil {
		return fmt.Errorf("write M3U data: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace M3U file: %w", err)
	}
	return nil
}
