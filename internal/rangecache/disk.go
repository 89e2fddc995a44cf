// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rangecache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	xglog "github.com/ManuGH/streamres/internal/log"
	"github.com/ManuGH/streamres/internal/metrics"
	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

const spanKeyPrefix = "span:"

// Disk keeps one sparse data file per key and the list of present spans in
// a badger index, so coverage survives restarts.
type Disk struct {
	dataDir string
	db      *badger.DB
	logger  zerolog.Logger

	mu    sync.Mutex
	spans map[string]Spans // lazily loaded mirror of the index
}

// OpenDisk opens (or creates) a disk cache rooted at dir.
func OpenDisk(dir string) (*Disk, error) {
	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("rangecache: create data dir: %w", err)
	}
	opts := badger.DefaultOptions(filepath.Join(dir, "index")).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("rangecache: open index: %w", err)
	}
	return &Disk{
		dataDir: dataDir,
		db:      db,
		logger:  xglog.WithComponent("rangecache"),
		spans:   make(map[string]Spans),
	}, nil
}

// Close releases the index.
func (d *Disk) Close() error { return d.db.Close() }

func (d *Disk) path(key string) string {
	return filepath.Join(d.dataDir, fileKey(key)+".bin")
}

// loadSpans must be called with d.mu held. Only keys with stored spans are
// mirrored, so lookups of unknown ids do not grow the map.
func (d *Disk) loadSpans(key string) (Spans, error) {
	if s, ok := d.spans[key]; ok {
		return s, nil
	}
	var s Spans
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(spanKeyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &s)
		})
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return nil, err
	}
	if len(s) > 0 {
		d.spans[key] = s
	}
	return s, nil
}

func (d *Disk) storeSpans(key string, s Spans) error {
	buf, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(spanKeyPrefix+key), buf)
	})
}

// IsCached reports whether [offset, offset+length) is present for key.
func (d *Disk) IsCached(key string, offset, length int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, err := d.loadSpans(key)
	if err != nil {
		d.logger.Warn().Err(err).
			Str(xglog.FieldEvent, "rangecache.index_read_failed").
			Str(xglog.FieldContentID, key).
			Msg("span index unreadable, treating as miss")
		return false
	}
	return s.Covers(offset, offset+length)
}

// CachedBytes returns the number of bytes present for key.
func (d *Disk) CachedBytes(key string) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, err := d.loadSpans(key)
	if err != nil {
		return 0
	}
	return s.Total()
}

// Read returns exactly length bytes starting at offset.
func (d *Disk) Read(key string, offset, length int64) ([]byte, error) {
	if !d.IsCached(key, offset, length) {
		return nil, ErrNotCached
	}
	f, err := os.Open(d.path(key))
	if err != nil {
		return nil, fmt.Errorf("rangecache: open %s: %w", key, err)
	}
	defer f.Close()

	buf := make([]byte, length)
	n, err := f.ReadAt(buf, offset)
	if err != nil && !(errors.Is(err, io.EOF) && int64(n) == length) {
		return nil, fmt.Errorf("rangecache: read %s: %w", key, err)
	}
	return buf, nil
}

// Write stores p at offset and records the span.
func (d *Disk) Write(key string, offset int64, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := os.OpenFile(d.path(key), os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return fmt.Errorf("rangecache: open %s: %w", key, err)
	}
	if _, err := f.WriteAt(p, offset); err != nil {
		_ = f.Close()
		return fmt.Errorf("rangecache: write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("rangecache: close %s: %w", key, err)
	}

	s, err := d.loadSpans(key)
	if err != nil {
		return fmt.Errorf("rangecache: load spans %s: %w", key, err)
	}
	s = s.Add(offset, offset+int64(len(p)))
	if err := d.storeSpans(key, s); err != nil {
		return fmt.Errorf("rangecache: store spans %s: %w", key, err)
	}
	d.spans[key] = s
	metrics.AddRangeCacheBytes(len(p))
	return nil
}

// Remove drops the data file and index entry for key.
func (d *Disk) Remove(key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.spans, key)
	if err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(spanKeyPrefix + key))
	}); err != nil {
		return fmt.Errorf("rangecache: delete index %s: %w", key, err)
	}
	if err := os.Remove(d.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("rangecache: remove %s: %w", key, err)
	}
	return nil
}

// Ping verifies the index is readable. Used by health checks.
func (d *Disk) Ping() error {
	return d.db.View(func(*badger.Txn) error { return nil })
}
