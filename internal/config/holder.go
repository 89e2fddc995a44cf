// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/streamres/internal/log"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const reloadDebounce = 500 * time.Millisecond

// Holder holds the effective configuration and swaps it atomically on
// reload. A reload that fails validation keeps the previous configuration.
type Holder struct {
	mu         sync.RWMutex
	current    AppConfig
	loader     *Loader
	configPath string
	logger     zerolog.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}

	listenMu  sync.RWMutex
	listeners []chan<- AppConfig

	// applyMu serialises Apply so concurrent mutations are not lost.
	applyMu sync.Mutex
}

func NewHolder(initial AppConfig, loader *Loader, configPath string) *Holder {
	return &Holder{
		current:    initial,
		loader:     loader,
		configPath: configPath,
		logger:     log.WithComponent("config"),
	}
}

func (h *Holder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload re-runs the loader and publishes the result to listeners.
func (h *Holder) Reload(_ context.Context) error {
	h.logger.Info().Str(log.FieldEvent, "config.reload_start").Msg("reloading configuration")

	next, err := h.loader.Load()
	if err != nil {
		h.logger.Error().
			Err(err).
			Str(log.FieldEvent, "config.reload_failed").
			Msg("failed to load new configuration")
		return fmt.Errorf("load config: %w", err)
	}
	h.swap(next)
	h.logger.Info().Str(log.FieldEvent, "config.reload_success").Msg("configuration reloaded successfully")
	return nil
}

// Apply mutates a copy of the current configuration, validates it, persists
// it to the config file when one is in use and publishes it.
func (h *Holder) Apply(_ context.Context, mutate func(*AppConfig)) (AppConfig, error) {
	h.applyMu.Lock()
	defer h.applyMu.Unlock()

	next := h.Get()
	mutate(&next)
	if err := Validate(next); err != nil {
		return h.Get(), err
	}
	if h.configPath != "" {
		if err := Save(h.configPath, next); err != nil {
			return h.Get(), err
		}
	}
	h.swap(next)
	return next, nil
}

func (h *Holder) swap(next AppConfig) {
	h.mu.Lock()
	prev := h.current
	if next.Version == "" {
		next.Version = prev.Version
	}
	h.current = next
	h.mu.Unlock()

	h.logChanges(prev, next)
	h.notify(next)
}

// StartWatcher reloads the configuration whenever the file changes. It is a
// no-op without a config file.
func (h *Holder) StartWatcher(ctx context.Context) error {
	if h.configPath == "" {
		h.logger.Info().
			Str(log.FieldEvent, "config.watcher_disabled").
			Msg("config file watcher disabled (using ENV-only configuration)")
		return nil
	}
	if h.watcher != nil {
		return errors.New("config watcher already running")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(h.configPath); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch config file: %w", err)
	}
	h.watcher = w
	h.done = make(chan struct{})

	h.logger.Info().
		Str(log.FieldEvent, "config.watcher_started").
		Str(log.FieldPath, h.configPath).
		Msg("watching config file for changes")

	go h.watchLoop(ctx, w, h.done)
	return nil
}

func (h *Holder) watchLoop(ctx context.Context, w *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = w.Close()
			h.logger.Info().Str(log.FieldEvent, "config.watcher_stopped").Msg("config watcher stopped")
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			// Editors that replace the file emit Create or Rename; renameio does
			// the same, so the watch is re-armed on the new inode.
			if ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
				_ = w.Add(h.configPath)
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			h.logger.Debug().
				Str(log.FieldEvent, "config.file_changed").
				Str("op", ev.Op.String()).
				Msg("config file changed")
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				if err := h.Reload(ctx); err != nil {
					h.logger.Error().
						Err(err).
						Str(log.FieldEvent, "config.auto_reload_failed").
						Msg("automatic config reload failed")
				}
			})

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Str(log.FieldEvent, "config.watcher_error").Msg("config watcher error")
		}
	}
}

// Stop closes the watcher and waits for the watch loop to exit.
func (h *Holder) Stop() {
	if h.watcher == nil {
		return
	}
	_ = h.watcher.Close()
	<-h.done
}

// RegisterListener registers ch to receive every published configuration.
// Sends are non-blocking; a full channel misses the update.
func (h *Holder) RegisterListener(ch chan<- AppConfig) {
	h.listenMu.Lock()
	defer h.listenMu.Unlock()
	h.listeners = append(h.listeners, ch)
}

func (h *Holder) notify(cfg AppConfig) {
	h.listenMu.RLock()
	defer h.listenMu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- cfg:
		default:
			h.logger.Warn().
				Str(log.FieldEvent, "config.listener_skip").
				Msg("skipped notifying listener (channel full)")
		}
	}
}

func (h *Holder) logChanges(prev, next AppConfig) {
	if prev.Quality != next.Quality {
		h.logger.Info().Str("old", prev.Quality).Str("new", next.Quality).Msg("config changed: quality")
	}
	if prev.LogLevel != next.LogLevel {
		h.logger.Info().Str("old", prev.LogLevel).Str("new", next.LogLevel).Msg("config changed: logLevel")
	}
	if prev.Catalog.BaseURL != next.Catalog.BaseURL {
		h.logger.Info().Msg("config changed: catalog.baseURL (takes effect on restart)")
	}
	if prev.Download.MaxParallel != next.Download.MaxParallel {
		h.logger.Info().
			Int("old", prev.Download.MaxParallel).
			Int("new", next.Download.MaxParallel).
			Msg("config changed: download.maxParallel (takes effect on restart)")
	}
}
