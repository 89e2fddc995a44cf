// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"

	"github.com/ManuGH/streamres/internal/config"
	"github.com/ManuGH/streamres/internal/format"
	"github.com/ManuGH/streamres/internal/log"
)

type qualityBody struct {
	Quality string `json:"quality"`
}

func (s *Server) handleGetQuality(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, qualityBody{Quality: s.deps.Resolver.Tier().String()})
}

// handlePutQuality changes the tier for future cold resolutions. URLs already
// memoized keep the format they were chosen with.
func (s *Server) handlePutQuality(w http.ResponseWriter, r *http.Request) {
	var body qualityBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		badRequest(w, r, "body must be {\"quality\": \"auto|high|medium|low\"}")
		return
	}
	tier, err := format.ParseTier(body.Quality)
	if err != nil || body.Quality == "" {
		badRequest(w, r, "unknown quality tier")
		return
	}

	if s.deps.Config != nil {
		if _, err := s.deps.Config.Apply(r.Context(), func(c *config.AppConfig) {
			c.Quality = tier.String()
		}); err != nil {
			writeErr(w, r, err)
			return
		}
	}
	prev := s.deps.Resolver.Tier()
	s.deps.Resolver.SetTier(tier)

	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Info().
		Str(log.FieldEvent, "api.quality_changed").
		Str("old", prev.String()).
		Str("new", tier.String()).
		Msg("quality tier changed")

	writeJSON(w, http.StatusOK, qualityBody{Quality: tier.String()})
}
