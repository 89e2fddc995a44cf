// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package net

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeURL(t *testing.T) {
	assert.Equal(t, "https://rr1.media.example/videoplayback",
		SanitizeURL("https://user:pw@rr1.media.example/videoplayback?sig=abc&expire=1#frag"))
	assert.Equal(t, "invalid-url-redacted", SanitizeURL("http://[::1"))
}

func TestParseDirectHTTPURL(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"https://catalog.example/youtubei/v1", true},
		{"  HTTP://127.0.0.1:9000  ", true},
		{"ftp://catalog.example", false},
		{"file:///etc/passwd", false},
		{"https://", false},
		{"https://u:p@catalog.example", false},
		{"https://catalog.example/#x", false},
		{"catalog.example", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			u, ok := ParseDirectHTTPURL(tt.in)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.NotNil(t, u)
			}
		})
	}
}
