// SPDX-License-Identifier: MIT

package catalog

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/streamres/internal/format"
)

func decodePlayer(t *testing.T, raw string) *PlayerResponse {
	t.Helper()
	var resp PlayerResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	return &resp
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   OutcomeKind
		code   string
		reason string
	}{
		{
			name: "ok",
			raw:  `{"playabilityStatus":{"status":"OK"},"videoDetails":{"videoId":"abc"},"streamingData":{"adaptiveFormats":[]}}`,
			want: OutcomeOK, code: "OK",
		},
		{
			name: "unplayable",
			raw:  `{"playabilityStatus":{"status":"UNPLAYABLE","reason":"region"},"videoDetails":{"videoId":"abc"}}`,
			want: OutcomeUnplayable, code: "UNPLAYABLE", reason: "region",
		},
		{
			name: "login required",
			raw:  `{"playabilityStatus":{"status":"LOGIN_REQUIRED"},"videoDetails":{"videoId":"abc"}}`,
			want: OutcomeLoginRequired, code: "LOGIN_REQUIRED",
		},
		{
			name: "other status",
			raw:  `{"playabilityStatus":{"status":"ERROR","reason":"gone"},"videoDetails":{"videoId":"abc"}}`,
			want: OutcomeOther, code: "ERROR", reason: "gone",
		},
		{
			name: "mismatch wins over ok",
			raw:  `{"playabilityStatus":{"status":"OK"},"videoDetails":{"videoId":"zzz"},"streamingData":{"adaptiveFormats":[{"itag":141,"url":"https://x"}]}}`,
			want: OutcomeMismatched,
		},
		{
			name: "missing details is a mismatch",
			raw:  `{"playabilityStatus":{"status":"OK"}}`,
			want: OutcomeMismatched,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Classify("abc", decodePlayer(t, tt.raw))
			assert.Equal(t, tt.want, out.Kind)
			assert.Equal(t, tt.code, out.Code)
			assert.Equal(t, tt.reason, out.Reason)
			if tt.want != OutcomeOK {
				assert.Nil(t, out.Formats)
			}
		})
	}
}

func TestPlayerResponse_Formats(t *testing.T) {
	resp := decodePlayer(t, `{
		"playabilityStatus":{"status":"OK"},
		"videoDetails":{"videoId":"abc"},
		"streamingData":{"adaptiveFormats":[
			{"itag":141,"mimeType":"audio/mp4","bitrate":256000,"contentLength":"4096","lastModified":"1700000000000","loudnessDb":-7.5,"url":"https://cdn/141"},
			{"itag":251,"mimeType":"audio/webm","contentLength":"bogus","signatureCipher":"s=abc"}
		]}
	}`)

	want := []format.Descriptor{
		{
			Itag:          141,
			MimeType:      "audio/mp4",
			Bitrate:       format.Int64(256000),
			ContentLength: format.Int64(4096),
			LastModified:  format.Int64(1700000000000),
			LoudnessDB:    format.Float64(-7.5),
			URL:           format.String("https://cdn/141"),
		},
		{Itag: 251, MimeType: "audio/webm"},
	}
	got := Classify("abc", resp).Formats
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("formats mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, got[1].Selectable())
}

func TestOutcomeKind_String(t *testing.T) {
	assert.Equal(t, "login_required", OutcomeLoginRequired.String())
	assert.Equal(t, "other", OutcomeOther.String())
}

func TestFormats_DropsNonHTTPURLs(t *testing.T) {
	resp := decodePlayer(t, `{"playabilityStatus":{"status":"OK"},"streamingData":{"adaptiveFormats":[
		{"itag":251,"mimeType":"audio/webm","url":"https://cdn/251?sig=x"},
		{"itag":250,"mimeType":"audio/webm","url":"file:///etc/passwd"},
		{"itag":249,"mimeType":"audio/webm","signatureCipher":"s=abc"}
	]}}`)

	got := resp.Formats()
	require.Len(t, got, 3)
	require.NotNil(t, got[0].URL)
	assert.Equal(t, "https://cdn/251?sig=x", *got[0].URL)
	assert.Nil(t, got[1].URL)
	assert.Nil(t, got[2].URL)
}
