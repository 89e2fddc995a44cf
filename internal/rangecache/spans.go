// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rangecache

import "sort"

// Span is a half-open byte interval [Start, End).
type Span struct {
	Start int64 `json:"s"`
	End   int64 `json:"e"`
}

// Spans is a sorted list of disjoint, non-adjacent spans.
type Spans []Span

// Add merges [start, end) into the list and returns the result.
func (s Spans) Add(start, end int64) Spans {
	if end <= start {
		return s
	}
	out := make(Spans, 0, len(s)+1)
	inserted := false
	for _, cur := range s {
		switch {
		case cur.End < start:
			out = append(out, cur)
		case end < cur.Start:
			if !inserted {
				out = append(out, Span{Start: start, End: end})
				inserted = true
			}
			out = append(out, cur)
		default:
			// overlapping or touching: absorb into the pending span
			if cur.Start < start {
				start = cur.Start
			}
			if cur.End > end {
				end = cur.End
			}
		}
	}
	if !inserted {
		out = append(out, Span{Start: start, End: end})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Covers reports whether [start, end) is entirely present.
// An empty range is always covered.
func (s Spans) Covers(start, end int64) bool {
	if end <= start {
		return true
	}
	i := sort.Search(len(s), func(i int) bool { return s[i].End > start })
	if i == len(s) {
		return false
	}
	return s[i].Start <= start && s[i].End >= end
}

// Total returns the number of cached bytes.
func (s Spans) Total() int64 {
	var n int64
	for _, sp := range s {
		n += sp.End - sp.Start
	}
	return n
}
