// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/ManuGH/streamres/internal/log"
	"github.com/ManuGH/streamres/internal/metrics"
	"github.com/ManuGH/streamres/internal/rangecache"
	"github.com/ManuGH/streamres/internal/resolver"
)

const (
	DefaultMaxActive       = 2
	defaultChunk     int64 = 1 << 20
)

// Reader pulls byte ranges through the resolver (see stream.Source).
type Reader interface {
	ReadAt(ctx context.Context, contentID string, off, n int64) ([]byte, error)
}

// Availability reports persisted length against range-cache coverage.
type Availability interface {
	Availability(ctx context.Context, contentID string) (resolver.Availability, error)
}

// QueueOptions tunes the built-in manager.
type QueueOptions struct {
	MaxActive int
	Chunk     int64
	// ExportDir, when set, receives a copy of every completed download.
	ExportDir string
}

type job struct {
	id       string
	attempt  string
	state    State
	cancel   context.CancelFunc
	done     chan struct{}
	removing bool
}

// Queue is the built-in Manager. It fills the range cache for a content id
// window by window, with at most MaxActive downloads transferring at once.
type Queue struct {
	src   Reader
	avail Availability
	cache rangecache.Cache
	opts  QueueOptions
	sem   *semaphore.Weighted

	base   context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	jobs   map[string]*job
	listen func(Event)
	closed bool
}

// NewQueue creates a queue. Close stops all downloads.
func NewQueue(src Reader, avail Availability, cache rangecache.Cache, opts QueueOptions) *Queue {
	if opts.MaxActive <= 0 {
		opts.MaxActive = DefaultMaxActive
	}
	if opts.Chunk <= 0 {
		opts.Chunk = defaultChunk
	}
	base, stop := context.WithCancel(context.Background())
	return &Queue{
		src:   src,
		avail: avail,
		cache: cache,
		opts:  opts,
		sem:   semaphore.NewWeighted(int64(opts.MaxActive)),
		base:  base,
		stop:  stop,
		jobs:  make(map[string]*job),
	}
}

func (q *Queue) SetListener(fn func(Event)) {
	q.mu.Lock()
	q.listen = fn
	q.mu.Unlock()
}

// Add queues contentID. A finished download (completed, failed, stopped) is
// restarted with a new attempt id.
func (q *Queue) Add(req Request) error {
	if req.ContentID == "" {
		return errors.New("download: content id is required")
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	prev, exists := q.jobs[req.ContentID]
	if exists && !prev.state.Terminal() {
		q.mu.Unlock()
		return ErrActive
	}
	ctx, cancel := context.WithCancel(q.base)
	j := &job{
		id:      req.ContentID,
		attempt: uuid.NewString(),
		state:   StateQueued,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	q.jobs[j.id] = j
	q.wg.Add(1)
	q.mu.Unlock()

	if exists {
		q.emit(Event{ContentID: j.id, AttemptID: j.attempt, State: StateRestarting})
	}
	q.emit(Event{ContentID: j.id, AttemptID: j.attempt, State: StateQueued})
	go q.run(ctx, j)
	return nil
}

// Remove cancels the download for contentID, waits for it to stop and drops
// its cached bytes.
func (q *Queue) Remove(contentID string) error {
	q.mu.Lock()
	j, ok := q.jobs[contentID]
	if !ok || j.removing {
		q.mu.Unlock()
		return ErrUnknown
	}
	j.removing = true
	j.state = StateRemoving
	q.mu.Unlock()

	j.cancel()
	<-j.done

	err := q.cache.Remove(contentID)

	q.mu.Lock()
	if q.jobs[contentID] == j {
		delete(q.jobs, contentID)
	}
	q.mu.Unlock()

	q.emit(Event{ContentID: contentID, AttemptID: j.attempt, State: StateRemoving, Err: err})
	return err
}

// Close stops every download and waits for the workers to exit.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.stop()
	q.wg.Wait()
}

func (q *Queue) run(ctx context.Context, j *job) {
	defer q.wg.Done()
	defer close(j.done)

	logger := log.WithComponent("download").With().
		Str(log.FieldContentID, j.id).
		Str(log.FieldAttemptID, j.attempt).
		Logger()

	if err := q.sem.Acquire(ctx, 1); err != nil {
		q.transition(j, StateStopped, nil)
		return
	}
	defer q.sem.Release(1)

	q.transition(j, StateDownloading, nil)
	metrics.IncDownloadsActive()
	err := q.fill(ctx, j.id)
	metrics.DecDownloadsActive()

	if err == nil && q.opts.ExportDir != "" {
		err = q.export(ctx, j.id)
	}

	switch {
	case ctx.Err() != nil:
		q.transition(j, StateStopped, nil)
	case err != nil:
		logger.Warn().Err(err).Str(log.FieldEvent, "download.failed").Msg("download failed")
		q.transition(j, StateFailed, err)
	default:
		logger.Info().Str(log.FieldEvent, "download.completed").Msg("download completed")
		q.transition(j, StateCompleted, nil)
	}
}

// fill reads every window of the content that the range cache lacks. When the
// content length is unknown it reads until end of stream.
func (q *Queue) fill(ctx context.Context, id string) error {
	total := int64(-1)
	var off int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if total < 0 {
			if a, err := q.avail.Availability(ctx, id); err == nil && a.Known {
				if a.Complete {
					return nil
				}
				total = a.ContentLength
			}
		}
		if total >= 0 && off >= total {
			return nil
		}

		n := q.opts.Chunk
		if total >= 0 && off+n > total {
			n = total - off
		}
		if total >= 0 && q.cache.IsCached(id, off, n) {
			off += n
			continue
		}

		data, err := q.src.ReadAt(ctx, id, off, n)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if len(data) == 0 {
			return nil
		}
		off += int64(len(data))
	}
}

func (q *Queue) export(ctx context.Context, id string) error {
	a, err := q.avail.Availability(ctx, id)
	if err != nil {
		return err
	}
	if !a.Complete {
		return fmt.Errorf("download %q: export of incomplete content (%d/%d bytes)", id, a.CachedBytes, a.ContentLength)
	}

	ext := "bin"
	if a.Format != nil {
		ext = extension(a.Format.MimeType)
	}
	path := filepath.Join(q.opts.ExportDir, exportName(id)+"."+ext)

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending export: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	for off := int64(0); off < a.ContentLength; off += q.opts.Chunk {
		n := q.opts.Chunk
		if off+n > a.ContentLength {
			n = a.ContentLength - off
		}
		data, err := q.cache.Read(id, off, n)
		if err != nil {
			return fmt.Errorf("read cached range: %w", err)
		}
		if _, err := pending.Write(data); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace export: %w", err)
	}
	logger := log.WithComponent("download")
	logger.Info().
		Str(log.FieldEvent, "download.exported").
		Str(log.FieldContentID, id).
		Str(log.FieldPath, path).
		Msg("download exported")
	return nil
}

func (q *Queue) transition(j *job, to State, err error) {
	q.mu.Lock()
	if j.removing {
		q.mu.Unlock()
		return
	}
	j.state = to
	q.mu.Unlock()
	q.emit(Event{ContentID: j.id, AttemptID: j.attempt, State: to, Err: err})
}

func (q *Queue) emit(ev Event) {
	metrics.RecordDownloadTransition(ev.State.String())
	q.mu.Lock()
	fn := q.listen
	q.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func extension(mime string) string {
	base, _, _ := strings.Cut(mime, ";")
	switch strings.TrimSpace(base) {
	case "audio/mp4":
		return "m4a"
	case "audio/webm":
		return "webm"
	default:
		return "bin"
	}
}

// exportName keeps ids made of [A-Za-z0-9_-] as they are. Any other id gets
// a readable prefix plus a hash suffix after '~', which safe ids cannot
// contain, so two ids never share an export file.
func exportName(id string) string {
	safe := id != ""
	readable := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		safe = false
		return '_'
	}, id)
	if safe {
		return readable
	}
	sum := sha256.Sum256([]byte(id))
	return readable + "~" + hex.EncodeToString(sum[:8])
}
