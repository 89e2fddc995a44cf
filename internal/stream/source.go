// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package stream is the player read path: it resolves a chunk request and
// serves it from the range cache or from the upstream stream URL, writing
// fetched windows through to the cache.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ManuGH/streamres/internal/log"
	"github.com/ManuGH/streamres/internal/rangecache"
	"github.com/ManuGH/streamres/internal/resolver"
)

// Resolver is the subset of *resolver.Resolver the read path needs.
type Resolver interface {
	Resolve(ctx context.Context, req resolver.Request) (resolver.Rewritten, error)
	Availability(ctx context.Context, contentID string) (resolver.Availability, error)
}

// UpstreamError reports an unexpected status from the stream URL.
type UpstreamError struct {
	ContentID string
	Status    int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("stream %q: upstream returned HTTP %d", e.ContentID, e.Status)
}

// Source reads byte ranges of content.
type Source struct {
	res   Resolver
	cache rangecache.Cache
	http  *http.Client
}

// NewSource wires a Source. cache must be the same store the resolver checks.
func NewSource(res Resolver, cache rangecache.Cache, hc *http.Client) *Source {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Source{res: res, cache: cache, http: hc}
}

// ReadAt returns up to n bytes of contentID starting at off. A short result
// means end of content; io.EOF is returned when off is at or past the end.
func (s *Source) ReadAt(ctx context.Context, contentID string, off, n int64) ([]byte, error) {
	rw, err := s.res.Resolve(ctx, resolver.Request{ContentID: contentID, Offset: off, Length: n})
	if err != nil {
		return nil, err
	}

	if rw.Passthrough() {
		want := n
		if rw.Cached < want {
			want = rw.Cached
		}
		return s.cache.Read(contentID, off, want)
	}

	window := rw.Length
	if window < n {
		window = n
	}
	data, err := s.fetch(ctx, contentID, rw.URI, off, window)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, io.EOF
	}

	if werr := s.cache.Write(contentID, off, data); werr != nil {
		logger := log.WithComponentFromContext(ctx, "stream")
		logger.Warn().
			Err(werr).
			Str(log.FieldEvent, "stream.cache_write_failed").
			Str(log.FieldContentID, contentID).
			Int64(log.FieldOffset, off).
			Msg("range cache write-through failed")
	}

	if int64(len(data)) > n {
		data = data[:n]
	}
	return data, nil
}

// fetch GETs [off, off+window) from uri. A 200 reply means the server ignored
// the Range header; the prefix is skipped.
func (s *Source) fetch(ctx context.Context, contentID, uri string, off, window int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, off+window-1))

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusPartialContent:
		if start, ok := contentRangeStart(resp.Header.Get("Content-Range")); ok && start != off {
			return nil, fmt.Errorf("stream %q: upstream range starts at %d, want %d", contentID, start, off)
		}
	case http.StatusOK:
		if _, err := io.CopyN(io.Discard, resp.Body, off); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, err
		}
	case http.StatusRequestedRangeNotSatisfiable:
		return nil, nil
	default:
		return nil, &UpstreamError{ContentID: contentID, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, window))
	if err != nil {
		return nil, err
	}
	logger := log.WithComponentFromContext(ctx, "stream")
	logger.Debug().
		Str(log.FieldEvent, "stream.window_fetched").
		Str(log.FieldContentID, contentID).
		Int64(log.FieldOffset, off).
		Int64(log.FieldWindow, window).
		Int(log.FieldLength, len(data)).
		Int(log.FieldStatus, resp.StatusCode).
		Msg("fetched upstream window")
	return data, nil
}

// contentRangeStart parses "bytes a-b/total".
func contentRangeStart(h string) (int64, bool) {
	h = strings.TrimSpace(h)
	if !strings.HasPrefix(h, "bytes ") {
		return 0, false
	}
	spec := strings.TrimPrefix(h, "bytes ")
	dash := strings.IndexByte(spec, '-')
	if dash <= 0 {
		return 0, false
	}
	start, err := strconv.ParseInt(spec[:dash], 10, 64)
	if err != nil {
		return 0, false
	}
	return start, true
}

func resolverRequest(contentID string) resolver.Request {
	return resolver.Request{ContentID: contentID, Length: 1}
}
