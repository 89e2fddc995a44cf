// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/streamres/internal/download"
)

type downloadStatus struct {
	ContentID string         `json:"contentId"`
	State     download.State `json:"state"`
}

func (s *Server) handleListDownloads(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Downloads.States())
}

func (s *Server) handleGetDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "contentID")
	st, ok := s.deps.Downloads.State(id)
	if !ok {
		writeErr(w, r, download.ErrUnknown)
		return
	}
	writeJSON(w, http.StatusOK, downloadStatus{ContentID: id, State: st})
}

// handleAddDownload is idempotent per attempt: re-adding an active download
// is a conflict, re-adding a finished one restarts it.
func (s *Server) handleAddDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "contentID")
	if err := s.deps.Downloads.Submit(id); err != nil {
		writeErr(w, r, err)
		return
	}
	st, _ := s.deps.Downloads.State(id)
	writeJSON(w, http.StatusAccepted, downloadStatus{ContentID: id, State: st})
}

func (s *Server) handleRemoveDownload(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Downloads.Cancel(chi.URLParam(r, "contentID")); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
