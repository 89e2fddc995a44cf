// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ManuGH/streamres/internal/api"
	"github.com/ManuGH/streamres/internal/cache"
	"github.com/ManuGH/streamres/internal/catalog"
	"github.com/ManuGH/streamres/internal/config"
	"github.com/ManuGH/streamres/internal/download"
	"github.com/ManuGH/streamres/internal/format"
	"github.com/ManuGH/streamres/internal/formatstore"
	"github.com/ManuGH/streamres/internal/health"
	"github.com/ManuGH/streamres/internal/log"
	"github.com/ManuGH/streamres/internal/memo"
	"github.com/ManuGH/streamres/internal/platform/httpx"
	"github.com/ManuGH/streamres/internal/playlist"
	"github.com/ManuGH/streamres/internal/rangecache"
	"github.com/ManuGH/streamres/internal/resolver"
	"github.com/ManuGH/streamres/internal/stream"
	"github.com/ManuGH/streamres/internal/telemetry"
)

const mediaTimeout = 2 * time.Minute

// App is the assembled daemon.
type App struct {
	cfg    config.AppConfig
	holder *config.Holder
	logger zerolog.Logger

	Resolver  *resolver.Resolver
	Source    *stream.Source
	Playlists *playlist.Service
	Downloads *download.Adapter
	Health    *health.Manager
	API       *api.Server

	manager *Manager
	closers []namedHook
}

// Build opens storage and wires every component from cfg. On error the
// resources opened so far are released.
func Build(ctx context.Context, cfg config.AppConfig, holder *config.Holder) (_ *App, err error) {
	a := &App{cfg: cfg, holder: holder, logger: log.WithComponent("daemon")}
	defer func() {
		if err != nil {
			a.closeAll(context.WithoutCancel(ctx))
		}
	}()

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "streamres",
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	a.onClose("telemetry", tp.Shutdown)

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		return nil, err
	}

	var rc rangecache.Cache
	switch cfg.Cache.Backend {
	case "memory":
		rc = rangecache.NewMemory()
	default:
		disk, err := rangecache.OpenDisk(cfg.Cache.Dir)
		if err != nil {
			return nil, fmt.Errorf("open range cache: %w", err)
		}
		a.onClose("range_cache", func(context.Context) error { return disk.Close() })
		rc = disk
	}

	store, err := formatstore.NewStore(formatstore.Config{
		Backend:   cfg.Store.Backend,
		Dir:       cfg.DataDir,
		RedisAddr: cfg.Store.RedisAddr,
		RedisDB:   cfg.Store.RedisDB,
		RedisPass: cfg.Store.RedisPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("open format store: %w", err)
	}
	a.onClose("format_store", func(context.Context) error { return store.Close() })

	proxy := httpx.ProxyConfig{Type: cfg.Proxy.Type, Host: cfg.Proxy.Host, Port: cfg.Proxy.Port}
	client, err := catalog.New(catalog.Config{
		BaseURL:          cfg.Catalog.BaseURL,
		ClientName:       cfg.Catalog.ClientName,
		ClientVersion:    cfg.Catalog.ClientVersion,
		Proxy:            proxy,
		Timeout:          cfg.Catalog.Timeout,
		RateLimit:        rate.Limit(cfg.Catalog.RateLimit),
		Burst:            cfg.Catalog.Burst,
		BreakerThreshold: cfg.Catalog.BreakerThreshold,
		BreakerReset:     cfg.Catalog.BreakerReset,
	})
	if err != nil {
		return nil, fmt.Errorf("catalog client: %w", err)
	}

	tier, err := format.ParseTier(cfg.Quality)
	if err != nil {
		return nil, err
	}
	a.Resolver, err = resolver.New(resolver.Deps{
		Catalog: client,
		Cache:   rc,
		Memo:    memo.New(cfg.Resolver.MemoCapacity),
		Store:   store,
	}, resolver.Options{
		Window:         cfg.Resolver.WindowBytes,
		ResolveTimeout: cfg.Resolver.ResolveTimeout,
		Tier:           tier,
	})
	if err != nil {
		return nil, err
	}

	media, err := httpx.NewClient(httpx.Options{Timeout: mediaTimeout, Proxy: proxy, Traced: true})
	if err != nil {
		return nil, fmt.Errorf("media client: %w", err)
	}
	a.Source = stream.NewSource(a.Resolver, rc, media)

	playlists := cache.NewTTL[playlist.Playlist](time.Minute)
	a.onClose("playlist_cache", func(context.Context) error { playlists.Close(); return nil })
	a.Playlists = playlist.NewService(client, playlists, playlist.Options{
		MaxDepth: cfg.Continuation.MaxDepth,
		TTL:      cfg.Continuation.PlaylistTTL,
	})

	queue := download.NewQueue(a.Source, a.Resolver, rc, download.QueueOptions{
		MaxActive: cfg.Download.MaxParallel,
		Chunk:     cfg.Download.ChunkBytes,
		ExportDir: cfg.Download.ExportDir,
	})
	a.onClose("download_queue", func(context.Context) error { queue.Close(); return nil })
	a.Downloads = download.NewAdapter(queue)

	a.Health = health.NewManager(cfg.Version)
	if c, ok := store.(interface{ Check(context.Context) error }); ok {
		a.Health.RegisterChecker(health.NewFuncChecker("format_store", c.Check))
	}
	if p, ok := rc.(interface{ Ping() error }); ok {
		a.Health.RegisterChecker(health.NewFuncChecker("range_cache", func(context.Context) error { return p.Ping() }))
	}
	a.Health.RegisterChecker(health.NewBreakerChecker("catalog", func() string { return client.BreakerState().String() }))

	var cs api.ConfigStore
	if holder != nil {
		cs = holder
	}
	tracing := ""
	if tp.Enabled() {
		tracing = "streamres"
	}
	a.API, err = api.New(api.Deps{
		Streams:   a.Source,
		Resolver:  a.Resolver,
		Playlists: a.Playlists,
		Downloads: a.Downloads,
		Config:    cs,
		Health:    a.Health,
	}, api.Options{
		PublicURL:      cfg.PublicURL,
		RateLimit:      cfg.API.RateLimit,
		TracingService: tracing,
		EnableLogging:  true,
	})
	if err != nil {
		return nil, err
	}

	a.manager, err = NewManager(ServerConfig{
		ListenAddr:      cfg.API.ListenAddr,
		ShutdownTimeout: cfg.API.ShutdownTimeout,
	}, a.API.Handler())
	if err != nil {
		return nil, err
	}
	for _, c := range a.closers {
		a.manager.RegisterShutdownHook(c.name, c.hook)
	}
	a.closers = nil
	return a, nil
}

func (a *App) onClose(name string, fn ShutdownHook) {
	a.closers = append(a.closers, namedHook{name: name, hook: fn})
}

func (a *App) closeAll(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].hook(ctx); err != nil {
			a.logger.Warn().Err(err).Str("hook", a.closers[i].name).Msg("cleanup after failed build")
		}
	}
	a.closers = nil
}

// Manager exposes the lifecycle manager, mainly for tests.
func (a *App) Manager() *Manager { return a.manager }

// Run serves until ctx is cancelled. Config reloads update the quality tier
// and log level in place; other settings apply on restart.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.holder != nil {
		updates := make(chan config.AppConfig, 4)
		a.holder.RegisterListener(updates)
		if err := a.holder.StartWatcher(gctx); err != nil {
			a.logger.Warn().Err(err).Str(log.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
		}
		g.Go(func() error {
			defer a.holder.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case next := <-updates:
					a.applyConfig(next)
				}
			}
		})
	}

	g.Go(func() error { return a.manager.Start(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *App) applyConfig(next config.AppConfig) {
	if tier, err := format.ParseTier(next.Quality); err == nil && tier != a.Resolver.Tier() {
		a.Resolver.SetTier(tier)
		a.logger.Info().
			Str(log.FieldEvent, "config.tier_applied").
			Str(log.FieldTier, tier.String()).
			Msg("quality tier updated from config")
	}
	if next.LogLevel != a.cfg.LogLevel {
		log.Configure(log.Config{Level: next.LogLevel, Version: next.Version})
	}
	a.cfg = next
}
