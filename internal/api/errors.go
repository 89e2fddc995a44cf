// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/streamres/internal/catalog"
	"github.com/ManuGH/streamres/internal/download"
	"github.com/ManuGH/streamres/internal/log"
	"github.com/ManuGH/streamres/internal/resolver"
	"github.com/ManuGH/streamres/internal/stream"
)

// apiError is the JSON body of every non-2xx response.
type apiError struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	Remote    string `json:"remote,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps resolution error codes onto HTTP statuses.
func statusFor(code resolver.Code) int {
	switch code {
	case resolver.CodeInvalid:
		return http.StatusBadRequest
	case resolver.CodeLoginRequired:
		return http.StatusUnauthorized
	case resolver.CodeUnplayable:
		return http.StatusUnavailableForLegalReasons
	case resolver.CodeNoPlayableFormat:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// writeErr classifies err and writes the matching response.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	body := apiError{RequestID: log.RequestIDFromContext(r.Context())}
	status := http.StatusInternalServerError

	var re *resolver.ResolveError
	var ue *stream.UpstreamError
	var ce *catalog.Error
	switch {
	case errors.As(err, &re):
		status = statusFor(re.Code)
		body.Error = string(re.Code)
		body.Detail = re.Detail
		body.Remote = re.Remote
	case errors.As(err, &ue):
		status = http.StatusBadGateway
		body.Error = "UPSTREAM"
		body.Detail = ue.Error()
	case errors.As(err, &ce):
		status = http.StatusBadGateway
		body.Error = "REMOTE"
		body.Remote = ce.Code()
	case errors.Is(err, download.ErrActive):
		status = http.StatusConflict
		body.Error = "DOWNLOAD_ACTIVE"
	case errors.Is(err, download.ErrUnknown):
		status = http.StatusNotFound
		body.Error = "DOWNLOAD_UNKNOWN"
	case errors.Is(err, download.ErrClosed):
		status = http.StatusServiceUnavailable
		body.Error = "SHUTTING_DOWN"
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		body.Error = "TIMEOUT"
	case errors.Is(err, context.Canceled):
		// client went away; nothing useful to send
		return
	default:
		body.Error = "INTERNAL"
	}

	logger := log.WithComponentFromContext(r.Context(), "api")
	ev := logger.Warn()
	if status >= 500 && status != http.StatusBadGateway && status != http.StatusGatewayTimeout {
		ev = logger.Error()
	}
	ev.Err(err).
		Str(log.FieldEvent, "api.request_failed").
		Str(log.FieldCode, body.Error).
		Int(log.FieldStatus, status).
		Msg("request failed")

	writeJSON(w, status, body)
}

func badRequest(w http.ResponseWriter, r *http.Request, detail string) {
	writeJSON(w, http.StatusBadRequest, apiError{
		Error:     string(resolver.CodeInvalid),
		Detail:    detail,
		RequestID: log.RequestIDFromContext(r.Context()),
	})
}
