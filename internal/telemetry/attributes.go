// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by every span the daemon emits.
const (
	ContentIDKey  = "content.id"
	PlaylistIDKey = "playlist.id"

	QualityTierKey   = "quality.tier"

	FormatItagKey    = "format.itag"
	FormatBitrateKey = "format.bitrate"
	FormatMimeKey    = "format.mime_type"

	ContinuationPagesKey = "continuation.pages"
	ContinuationStopKey  = "continuation.stop"

	ErrorTypeKey = "error.type"
)

// ResolveAttributes describes a cold resolution.
func ResolveAttributes(contentID, tier string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ContentIDKey, contentID),
		attribute.String(QualityTierKey, tier),
	}
}

// FormatAttributes describes the selected format. Bitrate and mime type are
// omitted when unknown.
func FormatAttributes(itag int, bitrate *int64, mimeType string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.Int(FormatItagKey, itag)}
	if bitrate != nil {
		attrs = append(attrs, attribute.Int64(FormatBitrateKey, *bitrate))
	}
	if mimeType != "" {
		attrs = append(attrs, attribute.String(FormatMimeKey, mimeType))
	}
	return attrs
}

func ContinuationAttributes(playlistID string, pages int, stop string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(PlaylistIDKey, playlistID),
		attribute.Int(ContinuationPagesKey, pages),
		attribute.String(ContinuationStopKey, stop),
	}
}

// ErrorAttributes tags a span with a stable error classification.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String(ErrorTypeKey, errorType)}
}
