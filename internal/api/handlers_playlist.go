// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/streamres/internal/log"
	"github.com/ManuGH/streamres/internal/playlist"
)

// handlePlaylist serves JSON, or M3U when the id carries a .m3u suffix.
func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "playlistID")
	id, asM3U := strings.CutSuffix(id, ".m3u")
	if id == "" {
		badRequest(w, r, "playlist id must be set")
		return
	}

	p, err := s.deps.Playlists.Load(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	if !asM3U {
		writeJSON(w, http.StatusOK, p)
		return
	}

	w.Header().Set("Content-Type", "audio/x-mpegurl")
	w.Header().Set("Content-Disposition", `inline; filename="`+sanitizeFilename(id)+`.m3u"`)
	w.WriteHeader(http.StatusOK)
	if err := playlist.WriteM3U(w, playlist.Items(s.baseURL(r), p.Tracks)); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "api.m3u_write_failed").
			Str(log.FieldPlaylistID, id).
			Msg("writing M3U failed")
	}
}

func (s *Server) baseURL(r *http.Request) string {
	if s.opts.PublicURL != "" {
		return s.opts.PublicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
