// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package format models the encoded-stream candidates returned by the catalog
// and the quality policy used to choose between them.
package format

// Descriptor is a single candidate encoding of a piece of content.
// Optional fields are nil when the catalog omitted them.
type Descriptor struct {
	Itag          int      `json:"itag"`
	MimeType      string   `json:"mime_type"`
	Bitrate       *int64   `json:"bitrate,omitempty"`
	ContentLength *int64   `json:"content_length,omitempty"`
	LastModified  *int64   `json:"last_modified,omitempty"` // epoch millis
	LoudnessDB    *float64 `json:"loudness_db,omitempty"`
	URL           *string  `json:"url,omitempty"`
}

// Selectable reports whether the descriptor can be played. A descriptor
// without a URL is never selectable.
func (d Descriptor) Selectable() bool {
	return d.URL != nil && *d.URL != ""
}

// WithoutURL returns a copy with the URL cleared. Stream URLs expire, so only
// this form is ever persisted.
func (d Descriptor) WithoutURL() Descriptor {
	d.URL = nil
	return d
}

// Length returns the content length, or -1 when unknown.
func (d Descriptor) Length() int64 {
	if d.ContentLength == nil {
		return -1
	}
	return *d.ContentLength
}

// Int64 returns a pointer to v. Handy for building descriptors in tests and decoders.
func Int64(v int64) *int64 { return &v }

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
