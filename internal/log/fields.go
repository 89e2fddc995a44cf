// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID  = "request_id"
	FieldContentID  = "content_id"
	FieldPlaylistID = "playlist_id"
	FieldAttemptID  = "attempt_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Resolution fields
	FieldItag    = "itag"
	FieldBitrate = "bitrate"
	FieldTier    = "tier"
	FieldSource  = "source"
	FieldCode    = "code"
	FieldStatus  = "status"

	// Byte range fields
	FieldOffset = "offset"
	FieldWindow = "window"
	FieldLength = "length"

	// Pagination fields
	FieldToken = "token"
	FieldDepth = "depth"
	FieldStop  = "stop"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / URL fields
	FieldPath    = "path"
	FieldBaseURL = "base_url"
)
