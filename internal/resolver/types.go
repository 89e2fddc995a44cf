// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resolver

import (
	"fmt"

	"github.com/ManuGH/streamres/internal/format"
)

// Code defines stable categories for resolution failures.
type Code string

const (
	CodeInvalid          Code = "INVALID_REQUEST"    // HTTP 400
	CodeMismatched       Code = "MISMATCHED"         // HTTP 502
	CodeUnplayable       Code = "UNPLAYABLE"         // HTTP 451
	CodeLoginRequired    Code = "LOGIN_REQUIRED"     // HTTP 401
	CodeNoPlayableFormat Code = "NO_PLAYABLE_FORMAT" // HTTP 404
	CodeRemote           Code = "REMOTE"             // HTTP 502
)

// ResolveError is the only failure type Resolve returns besides the caller's
// own context error. Remote carries the upstream status code or a short
// transport classification for CodeRemote.
type ResolveError struct {
	Code      Code
	ContentID string
	Remote    string
	Detail    string
	Err       error
}

func (e *ResolveError) Error() string {
	msg := fmt.Sprintf("resolve %q: %s", e.ContentID, e.Code)
	if e.Remote != "" {
		msg += "(" + e.Remote + ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolveError) Unwrap() error { return e.Err }

// Source names the layer that answered a resolution.
type Source string

const (
	SourceRangeCache Source = "range_cache"
	SourceMemo       Source = "memo"
	SourceCatalog    Source = "catalog"
)

// Request asks for Length bytes of ContentID starting at Offset.
type Request struct {
	ContentID string
	Offset    int64
	Length    int64
}

// Rewritten is the request to actually issue. An empty URI means the range
// is already in the range cache and the original request passes through;
// Cached then holds how many bytes from Offset are present, which is less
// than Length only when the request runs past the known end of content.
type Rewritten struct {
	ContentID string
	URI       string
	Offset    int64
	Length    int64
	Source    Source
	Cached    int64
}

// Passthrough reports whether the caller should serve from the range cache.
func (r Rewritten) Passthrough() bool { return r.URI == "" }

// Availability compares the persisted format length with range-cache coverage.
type Availability struct {
	ContentID     string             `json:"content_id"`
	Known         bool               `json:"known"`
	ContentLength int64              `json:"content_length"`
	CachedBytes   int64              `json:"cached_bytes"`
	Complete      bool               `json:"complete"`
	Format        *format.Descriptor `json:"format,omitempty"`
}
