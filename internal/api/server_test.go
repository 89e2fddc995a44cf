// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/streamres/internal/catalog"
	"github.com/ManuGH/streamres/internal/config"
	"github.com/ManuGH/streamres/internal/continuation"
	"github.com/ManuGH/streamres/internal/download"
	"github.com/ManuGH/streamres/internal/format"
	"github.com/ManuGH/streamres/internal/playlist"
	"github.com/ManuGH/streamres/internal/rangecache"
	"github.com/ManuGH/streamres/internal/resolver"
	"github.com/ManuGH/streamres/internal/stream"
)

// fakeResolver serves everything from a prefilled range cache.
type fakeResolver struct {
	mu       sync.Mutex
	cache    *rangecache.Memory
	lengths  map[string]int64
	failures map[string]error
	tier     format.Tier
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		cache:    rangecache.NewMemory(),
		lengths:  map[string]int64{},
		failures: map[string]error{},
	}
}

func (f *fakeResolver) add(id string, body []byte) {
	f.lengths[id] = int64(len(body))
	_ = f.cache.Write(id, 0, body)
}

func (f *fakeResolver) Resolve(_ context.Context, req resolver.Request) (resolver.Rewritten, error) {
	if err, ok := f.failures[req.ContentID]; ok {
		return resolver.Rewritten{}, err
	}
	total := f.lengths[req.ContentID]
	n := req.Length
	if req.Offset+n > total {
		n = max(total-req.Offset, 0)
	}
	return resolver.Rewritten{ContentID: req.ContentID, Offset: req.Offset, Length: req.Length,
		Source: resolver.SourceRangeCache, Cached: n}, nil
}

func (f *fakeResolver) Availability(_ context.Context, id string) (resolver.Availability, error) {
	if id == "" {
		return resolver.Availability{}, &resolver.ResolveError{Code: resolver.CodeInvalid}
	}
	total, ok := f.lengths[id]
	if !ok {
		return resolver.Availability{ContentID: id}, nil
	}
	return resolver.Availability{
		ContentID: id, Known: true, ContentLength: total, CachedBytes: total, Complete: true,
		Format: &format.Descriptor{Itag: 251, MimeType: "audio/webm", ContentLength: format.Int64(total)},
	}, nil
}

func (f *fakeResolver) Tier() format.Tier {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tier
}

func (f *fakeResolver) SetTier(t format.Tier) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tier = t
}

type fakePlaylists struct {
	p   playlist.Playlist
	err error
}

func (f fakePlaylists) Load(context.Context, string) (playlist.Playlist, error) { return f.p, f.err }

type fakeDownloads struct {
	states map[string]download.State
	err    error
}

func (f *fakeDownloads) Submit(id string) error {
	if f.err != nil {
		return f.err
	}
	f.states[id] = download.StateQueued
	return nil
}

func (f *fakeDownloads) Cancel(id string) error {
	if _, ok := f.states[id]; !ok {
		return download.ErrUnknown
	}
	delete(f.states, id)
	return nil
}

func (f *fakeDownloads) States() map[string]download.State { return f.states }

func (f *fakeDownloads) State(id string) (download.State, bool) {
	s, ok := f.states[id]
	return s, ok
}

type recordingConfig struct {
	cfg config.AppConfig
	err error
}

func (r *recordingConfig) Apply(_ context.Context, mutate func(*config.AppConfig)) (config.AppConfig, error) {
	if r.err != nil {
		return r.cfg, r.err
	}
	mutate(&r.cfg)
	return r.cfg, nil
}

type fixture struct {
	res  *fakeResolver
	dl   *fakeDownloads
	conf *recordingConfig
	srv  *httptest.Server
}

func newFixture(t *testing.T, pl fakePlaylists) *fixture {
	t.Helper()
	res := newFakeResolver()
	f := &fixture{
		res:  res,
		dl:   &fakeDownloads{states: map[string]download.State{}},
		conf: &recordingConfig{cfg: config.Defaults()},
	}
	s, err := New(Deps{
		Streams:   stream.NewSource(res, res.cache, nil),
		Resolver:  res,
		Playlists: pl,
		Downloads: f.dl,
		Config:    f.conf,
	}, Options{PublicURL: "http://media.local"})
	require.NoError(t, err)
	f.srv = httptest.NewServer(s.Handler())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body io.Reader, hdr map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, body)
	require.NoError(t, err)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeErr(t *testing.T, resp *http.Response) apiError {
	t.Helper()
	var e apiError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	return e
}

func TestStream_FullAndRange(t *testing.T) {
	f := newFixture(t, fakePlaylists{})
	body := bytes.Repeat([]byte("0123456789"), 100)
	f.res.add("song", body)

	resp := f.do(t, http.MethodGet, "/v1/stream/song", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/webm", resp.Header.Get("Content-Type"))
	assert.Equal(t, "bytes", resp.Header.Get("Accept-Ranges"))
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, body, got)

	resp = f.do(t, http.MethodGet, "/v1/stream/song", nil, map[string]string{"Range": "bytes=995-"})
	require.Equal(t, http.StatusPartialContent, resp.StatusCode)
	assert.Equal(t, "bytes 995-999/1000", resp.Header.Get("Content-Range"))
	got, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("56789"), got)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestStream_ResolutionErrorMapping(t *testing.T) {
	tests := []struct {
		code resolver.Code
		want int
	}{
		{resolver.CodeInvalid, http.StatusBadRequest},
		{resolver.CodeLoginRequired, http.StatusUnauthorized},
		{resolver.CodeUnplayable, http.StatusUnavailableForLegalReasons},
		{resolver.CodeNoPlayableFormat, http.StatusNotFound},
		{resolver.CodeMismatched, http.StatusBadGateway},
		{resolver.CodeRemote, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			f := newFixture(t, fakePlaylists{})
			f.res.failures["x"] = &resolver.ResolveError{Code: tt.code, ContentID: "x", Remote: "http_503"}

			resp := f.do(t, http.MethodGet, "/v1/stream/x", nil, nil)
			assert.Equal(t, tt.want, resp.StatusCode)
			e := decodeErr(t, resp)
			assert.Equal(t, string(tt.code), e.Error)
			assert.Equal(t, resp.Header.Get("X-Request-ID"), e.RequestID)
		})
	}
}

func TestAvailability(t *testing.T) {
	f := newFixture(t, fakePlaylists{})
	f.res.add("song", []byte("abc"))

	resp := f.do(t, http.MethodGet, "/v1/availability/song", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var a resolver.Availability
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&a))
	assert.True(t, a.Complete)
	assert.Equal(t, int64(3), a.ContentLength)
	require.NotNil(t, a.Format)
	assert.Nil(t, a.Format.URL)
}

func TestQuality_GetAndPut(t *testing.T) {
	f := newFixture(t, fakePlaylists{})

	resp := f.do(t, http.MethodGet, "/v1/quality", nil, nil)
	var q qualityBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&q))
	assert.Equal(t, "auto", q.Quality)

	resp = f.do(t, http.MethodPut, "/v1/quality", strings.NewReader(`{"quality":"HIGH"}`), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, format.TierHigh, f.res.Tier())
	assert.Equal(t, "high", f.conf.cfg.Quality)

	resp = f.do(t, http.MethodPut, "/v1/quality", strings.NewReader(`{"quality":"ultra"}`), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, format.TierHigh, f.res.Tier())

	resp = f.do(t, http.MethodPut, "/v1/quality", strings.NewReader(`{"tier":"low"}`), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQuality_PersistFailureKeepsTier(t *testing.T) {
	f := newFixture(t, fakePlaylists{})
	f.conf.err = errors.New("disk full")

	resp := f.do(t, http.MethodPut, "/v1/quality", strings.NewReader(`{"quality":"low"}`), nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, format.TierAuto, f.res.Tier())
}

func TestPlaylist_JSONAndM3U(t *testing.T) {
	pl := playlist.Playlist{
		ID:    "PL1",
		Pages: 1,
		Stop:  continuation.StopTerminal,
		Tracks: []catalog.Track{
			{VideoID: "a b", Title: "Song", Author: "Band", DurationSeconds: 61},
		},
	}
	f := newFixture(t, fakePlaylists{p: pl})

	resp := f.do(t, http.MethodGet, "/v1/playlists/PL1", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got playlist.Playlist
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, pl, got)

	resp = f.do(t, http.MethodGet, "/v1/playlists/PL1.m3u", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/x-mpegurl", resp.Header.Get("Content-Type"))
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "#EXTINF:61,Band - Song")
	assert.Contains(t, string(raw), "http://media.local/v1/stream/a%20b")
}

func TestPlaylist_UpstreamFailure(t *testing.T) {
	f := newFixture(t, fakePlaylists{err: &catalog.Error{Sentinel: catalog.ErrUpstreamStatus, Operation: "browse", Status: 503}})
	resp := f.do(t, http.MethodGet, "/v1/playlists/PL1", nil, nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "http_503", decodeErr(t, resp).Remote)
}

func TestDownloads(t *testing.T) {
	f := newFixture(t, fakePlaylists{})

	resp := f.do(t, http.MethodPut, "/v1/downloads/song", nil, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var st downloadStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, download.StateQueued, st.State)

	resp = f.do(t, http.MethodGet, "/v1/downloads", nil, nil)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"song":"queued"}`, string(raw))

	resp = f.do(t, http.MethodDelete, "/v1/downloads/song", nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/v1/downloads/song", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	f.dl.err = download.ErrActive
	resp = f.do(t, http.MethodPut, "/v1/downloads/song", nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestProbesAndMetrics(t *testing.T) {
	f := newFixture(t, fakePlaylists{})
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp := f.do(t, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
