// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api is the HTTP surface of the daemon: stream playback,
// playlists, quality control, downloads and probes.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/streamres/internal/api/middleware"
	"github.com/ManuGH/streamres/internal/config"
	"github.com/ManuGH/streamres/internal/download"
	"github.com/ManuGH/streamres/internal/format"
	"github.com/ManuGH/streamres/internal/health"
	"github.com/ManuGH/streamres/internal/playlist"
	"github.com/ManuGH/streamres/internal/resolver"
	"github.com/ManuGH/streamres/internal/stream"
)

type Streams interface {
	Open(ctx context.Context, contentID string) (*stream.Reader, error)
}

// Resolver is the subset of *resolver.Resolver the handlers use.
type Resolver interface {
	Availability(ctx context.Context, contentID string) (resolver.Availability, error)
	Tier() format.Tier
	SetTier(format.Tier)
}

type Playlists interface {
	Load(ctx context.Context, playlistID string) (playlist.Playlist, error)
}

type Downloads interface {
	Submit(contentID string) error
	Cancel(contentID string) error
	States() map[string]download.State
	State(contentID string) (download.State, bool)
}

// ConfigStore persists live configuration changes. Optional.
type ConfigStore interface {
	Apply(ctx context.Context, mutate func(*config.AppConfig)) (config.AppConfig, error)
}

type Deps struct {
	Streams   Streams
	Resolver  Resolver
	Playlists Playlists
	Downloads Downloads
	Config    ConfigStore
	Health    *health.Manager
}

type Options struct {
	// PublicURL prefixes stream links in M3U output. Empty derives it from
	// the request.
	PublicURL      string
	RateLimit      int
	TracingService string
	EnableLogging  bool
}

type Server struct {
	deps Deps
	opts Options
	mux  *chi.Mux
}

func New(deps Deps, opts Options) (*Server, error) {
	if deps.Streams == nil || deps.Resolver == nil {
		return nil, errors.New("api: streams and resolver are required")
	}
	if deps.Health == nil {
		deps.Health = health.NewManager("")
	}
	s := &Server{deps: deps, opts: opts}
	s.mux = s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	middleware.ApplyStack(r, middleware.StackConfig{
		TracingService: s.opts.TracingService,
		EnableMetrics:  true,
		EnableLogging:  s.opts.EnableLogging,
		RateLimit:      s.opts.RateLimit,
	})

	r.Get("/healthz", s.deps.Health.ServeHealth)
	r.Get("/readyz", s.deps.Health.ServeReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/stream/{contentID}", s.handleStream)
		r.Head("/stream/{contentID}", s.handleStream)
		r.Get("/availability/{contentID}", s.handleAvailability)

		r.Get("/quality", s.handleGetQuality)
		r.Put("/quality", s.handlePutQuality)

		if s.deps.Playlists != nil {
			r.Get("/playlists/{playlistID}", s.handlePlaylist)
		}
		if s.deps.Downloads != nil {
			r.Get("/downloads", s.handleListDownloads)
			r.Get("/downloads/{contentID}", s.handleGetDownload)
			r.Put("/downloads/{contentID}", s.handleAddDownload)
			r.Delete("/downloads/{contentID}", s.handleRemoveDownload)
		}
	})
	return r
}
