// SPDX-License-Identifier: MIT
package playlist

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ManuGH/streamres/internal/catalog"
)

// Item is one M3U entry.
type Item struct {
	Title           string
	Author          string
	DurationSeconds int
	URL             string
}

// Items maps tracks to entries pointing at the local stream endpoint under
// baseURL.
func Items(baseURL string, tracks []catalog.Track) []Item {
	base := strings.TrimRight(baseURL, "/")
	out := make([]Item, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, Item{
			Title:           t.Title,
			Author:          t.Author,
			DurationSeconds: t.DurationSeconds,
			URL:             base + "/v1/stream/" + url.PathEscape(t.VideoID),
		})
	}
	return out
}

// WriteM3U writes an extended M3U playlist. Unknown durations are written as -1.
func WriteM3U(w io.Writer, items []Item) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("#EXTM3U\n"); err != nil {
		return err
	}
	for _, it := range items {
		dur := it.DurationSeconds
		if dur <= 0 {
			dur = -1
		}
		name := oneLine(it.Title)
		if a := oneLine(it.Author); a != "" {
			name = a + " - " + name
		}
		if _, err := fmt.Fprintf(bw, "#EXTINF:%d,%s\n%s\n", dur, name, oneLine(it.URL)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// oneLine keeps a field from breaking the line-oriented format and
// NFC-normalizes it.
func oneLine(s string) string {
	return norm.NFC.String(strings.NewReplacer("\r", " ", "\n", " ").Replace(strings.TrimSpace(s)))
}
