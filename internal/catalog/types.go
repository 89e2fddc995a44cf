// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"strconv"

	"github.com/ManuGH/streamres/internal/format"
	platformnet "github.com/ManuGH/streamres/internal/platform/net"
)

// Playability statuses reported by the catalog.
const (
	StatusOK            = "OK"
	StatusUnplayable    = "UNPLAYABLE"
	StatusLoginRequired = "LOGIN_REQUIRED"
)

// PlayerResponse is the subset of the catalog's player response the
// resolver consumes.
type PlayerResponse struct {
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason,omitempty"`
	} `json:"playabilityStatus"`
	VideoDetails *struct {
		VideoID string `json:"videoId"`
	} `json:"videoDetails,omitempty"`
	StreamingData *struct {
		AdaptiveFormats []wireFormat `json:"adaptiveFormats"`
	} `json:"streamingData,omitempty"`
}

// wireFormat mirrors one adaptive format. Lengths and timestamps arrive as
// decimal strings.
type wireFormat struct {
	Itag            int      `json:"itag"`
	MimeType        string   `json:"mimeType"`
	Bitrate         *int64   `json:"bitrate,omitempty"`
	ContentLength   string   `json:"contentLength,omitempty"`
	LastModified    string   `json:"lastModified,omitempty"`
	LoudnessDB      *float64 `json:"loudnessDb,omitempty"`
	URL             *string  `json:"url,omitempty"`
	SignatureCipher string   `json:"signatureCipher,omitempty"`
}

// EchoedID returns the content id the catalog says it answered for.
func (r *PlayerResponse) EchoedID() string {
	if r == nil || r.VideoDetails == nil {
		return ""
	}
	return r.VideoDetails.VideoID
}

// Formats converts the adaptive format list into descriptors. Formats that
// only carry a signatureCipher, or a URL that is not plain http(s), have no
// usable URL and stay unselectable.
func (r *PlayerResponse) Formats() []format.Descriptor {
	if r == nil || r.StreamingData == nil {
		return nil
	}
	out := make([]format.Descriptor, 0, len(r.StreamingData.AdaptiveFormats))
	for _, f := range r.StreamingData.AdaptiveFormats {
		d := format.Descriptor{
			Itag:          f.Itag,
			MimeType:      f.MimeType,
			Bitrate:       f.Bitrate,
			ContentLength: parseDecimal(f.ContentLength),
			LastModified:  parseDecimal(f.LastModified),
			LoudnessDB:    f.LoudnessDB,
		}
		if f.URL != nil {
			if _, ok := platformnet.ParseDirectHTTPURL(*f.URL); ok {
				u := *f.URL
				d.URL = &u
			}
		}
		out = append(out, d)
	}
	return out
}

func parseDecimal(s string) *int64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// Track is one playlist entry.
type Track struct {
	VideoID         string `json:"videoId"`
	Title           string `json:"title"`
	Author          string `json:"author,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
}

type browseResponse struct {
	Items        []Track `json:"items"`
	Continuation string  `json:"continuation,omitempty"`
}
