// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package resolver turns a content id and byte range into the request a
// reader should issue: served from the range cache, rewritten to a recently
// resolved stream URL, or rewritten after a fresh catalog lookup.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/streamres/internal/catalog"
	"github.com/ManuGH/streamres/internal/format"
	"github.com/ManuGH/streamres/internal/formatstore"
	"github.com/ManuGH/streamres/internal/log"
	"github.com/ManuGH/streamres/internal/memo"
	"github.com/ManuGH/streamres/internal/metrics"
	"github.com/ManuGH/streamres/internal/rangecache"
	"github.com/ManuGH/streamres/internal/telemetry"
)

const (
	// DefaultWindow bounds how much of a resolved URL one pass requests.
	DefaultWindow         int64 = 10 << 20
	defaultResolveTimeout       = 20 * time.Second
)

// Catalog is the playability lookup the resolver depends on.
type Catalog interface {
	Player(ctx context.Context, contentID string) (*catalog.PlayerResponse, error)
}

// Deps are the shared collaborators. Memo, Cache and Store default to
// in-memory implementations when nil.
type Deps struct {
	Catalog Catalog
	Cache   rangecache.Cache
	Memo    *memo.Ring
	Store   formatstore.Store
}

// Options tunes resolution.
type Options struct {
	// Window is the length of rewritten requests. Non-positive means use the
	// caller's length.
	Window         int64
	ResolveTimeout time.Duration
	Tier           format.Tier
}

// Resolver is safe for concurrent use. Cold resolutions for the same content
// id are coalesced into one catalog call.
type Resolver struct {
	catalog Catalog
	cache   rangecache.Cache
	memo    *memo.Ring
	store   formatstore.Store

	window  int64
	timeout time.Duration
	tier    atomic.Int32

	sf     singleflight.Group
	tracer trace.Tracer
}

// New wires a resolver.
func New(deps Deps, opts Options) (*Resolver, error) {
	if deps.Catalog == nil {
		return nil, errors.New("resolver: catalog is required")
	}
	r := &Resolver{
		catalog: deps.Catalog,
		cache:   deps.Cache,
		memo:    deps.Memo,
		store:   deps.Store,
		window:  opts.Window,
		timeout: opts.ResolveTimeout,
		tracer:  telemetry.Tracer("github.com/ManuGH/streamres/internal/resolver"),
	}
	if r.cache == nil {
		r.cache = rangecache.NewMemory()
	}
	if r.memo == nil {
		r.memo = memo.New(memo.DefaultCapacity)
	}
	if r.store == nil {
		r.store = formatstore.NewMemoryStore()
	}
	if r.timeout <= 0 {
		r.timeout = defaultResolveTimeout
	}
	r.tier.Store(int32(opts.Tier))
	r.memo.OnEvict(func(string) { metrics.RecordMemoEviction() })
	return r, nil
}

// Tier returns the active quality tier.
func (r *Resolver) Tier() format.Tier { return format.Tier(r.tier.Load()) }

// SetTier switches the quality tier for subsequent cold resolutions. URLs
// already in the memo are kept.
func (r *Resolver) SetTier(t format.Tier) { r.tier.Store(int32(t)) }

// Resolve answers req from the range cache, the memo, or the catalog, in that
// order. A caller whose ctx ends while a cold resolution is in flight gets
// ctx.Err(); the resolution itself still completes for other waiters.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Rewritten, error) {
	if req.ContentID == "" || req.Offset < 0 || req.Length < 0 {
		err := &ResolveError{Code: CodeInvalid, ContentID: req.ContentID, Detail: "content id must be set and offset/length non-negative"}
		metrics.RecordResolutionError(string(err.Code))
		return Rewritten{}, err
	}

	if n, ok := r.cached(ctx, req); ok {
		metrics.RecordResolution(string(SourceRangeCache))
		return Rewritten{ContentID: req.ContentID, Offset: req.Offset, Length: req.Length, Source: SourceRangeCache, Cached: n}, nil
	}

	if uri, ok := r.memo.Get(req.ContentID); ok {
		metrics.RecordResolution(string(SourceMemo))
		return r.rewrite(req, uri, SourceMemo), nil
	}

	ch := r.sf.DoChan(req.ContentID, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.flight(flightCtx, req.ContentID)
	})

	select {
	case <-ctx.Done():
		return Rewritten{}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			metrics.RecordCoalesced()
		}
		if res.Err != nil {
			var re *ResolveError
			if errors.As(res.Err, &re) {
				metrics.RecordResolutionError(string(re.Code))
			}
			return Rewritten{}, res.Err
		}
		fr := res.Val.(flightResult)
		metrics.RecordResolution(string(fr.source))
		return r.rewrite(req, fr.uri, fr.source), nil
	}
}

// flightResult carries which layer answered a coalesced resolution.
type flightResult struct {
	uri    string
	source Source
}

// flight re-checks the memo, since an earlier flight for the same id may
// have filled it after the caller's own check, and otherwise asks the catalog.
func (r *Resolver) flight(ctx context.Context, contentID string) (flightResult, error) {
	if uri, ok := r.memo.Get(contentID); ok {
		return flightResult{uri: uri, source: SourceMemo}, nil
	}
	uri, err := r.resolveCold(ctx, contentID)
	if err != nil {
		return flightResult{}, err
	}
	return flightResult{uri: uri, source: SourceCatalog}, nil
}

func (r *Resolver) rewrite(req Request, uri string, src Source) Rewritten {
	length := r.window
	if length <= 0 {
		length = req.Length
	}
	return Rewritten{ContentID: req.ContentID, URI: uri, Offset: req.Offset, Length: length, Source: src}
}

// cached reports whether the requested range is fully in the range cache.
// The range is clamped to the persisted content length when one is known. A
// zero length with no known content length is never a hit.
func (r *Resolver) cached(ctx context.Context, req Request) (int64, bool) {
	length := req.Length
	if d, ok := r.persisted(ctx, req.ContentID); ok && d.ContentLength != nil {
		total := *d.ContentLength
		if req.Offset >= total {
			return 0, false
		}
		if length == 0 || req.Offset+length > total {
			length = total - req.Offset
		}
	}
	if length <= 0 {
		return 0, false
	}
	return length, r.cache.IsCached(req.ContentID, req.Offset, length)
}

// persisted reads the format store; faults degrade to "unknown".
func (r *Resolver) persisted(ctx context.Context, contentID string) (format.Descriptor, bool) {
	d, ok, err := r.store.Get(ctx, contentID)
	if err != nil {
		logger := log.WithComponentFromContext(ctx, "resolver")
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "resolver.store_read_failed").
			Str(log.FieldContentID, contentID).
			Msg("format store read failed, treating as unknown")
		return format.Descriptor{}, false
	}
	return d, ok
}

func (r *Resolver) resolveCold(ctx context.Context, contentID string) (string, error) {
	ctx, span := r.tracer.Start(ctx, "resolver.cold",
		trace.WithAttributes(telemetry.ResolveAttributes(contentID, r.Tier().String())...))
	defer span.End()

	logger := log.WithComponentFromContext(ctx, "resolver").With().
		Str(log.FieldContentID, contentID).Logger()
	start := time.Now()
	defer func() { metrics.ObserveColdResolution(time.Since(start).Seconds()) }()

	uri, err := r.lookup(ctx, contentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var re *ResolveError
		ev := logger.Warn().Err(err).Str(log.FieldEvent, "resolver.cold_failed")
		if errors.As(err, &re) {
			ev = ev.Str(log.FieldCode, string(re.Code))
			span.SetAttributes(telemetry.ErrorAttributes(string(re.Code))...)
		}
		ev.Dur("duration", time.Since(start)).Msg("cold resolution failed")
		return "", err
	}

	logger.Info().
		Str(log.FieldEvent, "resolver.cold_resolved").
		Dur("duration", time.Since(start)).
		Msg("stream resolved")
	return uri, nil
}

func (r *Resolver) lookup(ctx context.Context, contentID string) (string, error) {
	resp, err := r.catalog.Player(ctx, contentID)
	if err != nil {
		return "", &ResolveError{Code: CodeRemote, ContentID: contentID, Remote: remoteCode(err), Err: err}
	}

	out := catalog.Classify(contentID, resp)
	switch out.Kind {
	case catalog.OutcomeOK:
	case catalog.OutcomeMismatched:
		return "", &ResolveError{Code: CodeMismatched, ContentID: contentID,
			Detail: fmt.Sprintf("catalog answered for %q", out.EchoedID)}
	case catalog.OutcomeUnplayable:
		return "", &ResolveError{Code: CodeUnplayable, ContentID: contentID, Detail: out.Reason}
	case catalog.OutcomeLoginRequired:
		return "", &ResolveError{Code: CodeLoginRequired, ContentID: contentID, Detail: out.Reason}
	default:
		return "", &ResolveError{Code: CodeRemote, ContentID: contentID, Remote: out.Code, Detail: out.Reason}
	}

	tier := r.Tier()
	chosen, ok := format.Select(tier, out.Formats)
	if !ok {
		return "", &ResolveError{Code: CodeNoPlayableFormat, ContentID: contentID,
			Detail: fmt.Sprintf("%d candidates, none allowed for tier %s", len(out.Formats), tier)}
	}
	metrics.RecordSelectedFormat(fmt.Sprint(chosen.Itag), tier.String())
	trace.SpanFromContext(ctx).SetAttributes(telemetry.FormatAttributes(chosen.Itag, chosen.Bitrate, chosen.MimeType)...)

	logger := log.WithComponentFromContext(ctx, "resolver")
	if err := r.store.Put(ctx, contentID, chosen.WithoutURL()); err != nil {
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "resolver.store_write_failed").
			Str(log.FieldContentID, contentID).
			Msg("persisting format metadata failed")
	}
	r.memo.Put(contentID, *chosen.URL)

	logger.Debug().
		Str(log.FieldEvent, "resolver.format_selected").
		Str(log.FieldContentID, contentID).
		Int(log.FieldItag, chosen.Itag).
		Str(log.FieldTier, tier.String()).
		Int64(log.FieldLength, chosen.Length()).
		Msg("format selected")
	return *chosen.URL, nil
}

func remoteCode(err error) string {
	var ce *catalog.Error
	if errors.As(err, &ce) {
		return ce.Code()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "transport"
}

// Availability reports whether contentID is fully present in the range cache.
func (r *Resolver) Availability(ctx context.Context, contentID string) (Availability, error) {
	if contentID == "" {
		return Availability{}, &ResolveError{Code: CodeInvalid, Detail: "content id must be set"}
	}
	d, ok, err := r.store.Get(ctx, contentID)
	if err != nil {
		return Availability{}, fmt.Errorf("availability %q: %w", contentID, err)
	}
	a := Availability{ContentID: contentID, CachedBytes: r.cache.CachedBytes(contentID)}
	if !ok {
		return a, nil
	}
	a.Format = &d
	if d.ContentLength != nil {
		a.Known = true
		a.ContentLength = *d.ContentLength
		a.Complete = a.ContentLength > 0 && r.cache.IsCached(contentID, 0, a.ContentLength)
	}
	return a, nil
}
