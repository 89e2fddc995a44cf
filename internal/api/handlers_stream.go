// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/streamres/internal/log"
)

// handleStream serves content bytes. With a known length, Range requests are
// honoured through http.ServeContent; otherwise the body is streamed in full.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "contentID")
	ctx := log.ContextWithContentID(r.Context(), id)
	r = r.WithContext(ctx)

	rd, err := s.deps.Streams.Open(ctx, id)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	contentType := "application/octet-stream"
	var modTime time.Time
	if a, err := s.deps.Resolver.Availability(ctx, id); err == nil && a.Format != nil {
		if a.Format.MimeType != "" {
			contentType = a.Format.MimeType
		}
		if a.Format.LastModified != nil {
			modTime = time.UnixMilli(*a.Format.LastModified)
		}
	}
	w.Header().Set("Content-Type", contentType)

	if rd.Size() >= 0 {
		http.ServeContent(w, r, "", modTime, rd)
		return
	}

	w.Header().Set("Accept-Ranges", "none")
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	n, err := io.Copy(w, rd)
	if err != nil && !errors.Is(err, io.EOF) {
		logger := log.WithComponentFromContext(ctx, "api")
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "api.stream_aborted").
			Int64("bytes", n).
			Msg("stream aborted mid-body")
	}
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "contentID")
	a, err := s.deps.Resolver.Availability(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
