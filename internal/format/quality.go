// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package format

import (
	"fmt"
	"sort"
	"strings"
)

// Tier is the user-selected audio quality.
type Tier int

const (
	TierAuto Tier = iota
	TierHigh
	TierMedium
	TierLow
)

// Known audio itags. Each fixed tier pairs one opus (webm) tag with one
// legacy aac (mp4) tag.
const (
	ItagAACLow     = 139
	ItagAACMedium  = 140
	ItagAACHigh    = 141
	ItagVorbis     = 171
	ItagOpusLow    = 249
	ItagOpusMedium = 250
	ItagOpusHigh   = 251
	ItagOpusPrem   = 774
)

var tierTags = map[Tier][]int{
	TierHigh:   {ItagAACHigh, ItagOpusHigh},
	TierMedium: {ItagAACMedium, ItagOpusMedium},
	TierLow:    {ItagAACLow, ItagOpusLow},
}

// extra tags only Auto accepts
var autoOnlyTags = []int{ItagVorbis, ItagOpusPrem}

func (t Tier) String() string {
	switch t {
	case TierAuto:
		return "auto"
	case TierHigh:
		return "high"
	case TierMedium:
		return "medium"
	case TierLow:
		return "low"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// ParseTier parses a case-insensitive tier name. Empty input means Auto.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return TierAuto, nil
	case "high":
		return TierHigh, nil
	case "medium":
		return TierMedium, nil
	case "low":
		return TierLow, nil
	default:
		return TierAuto, fmt.Errorf("unknown quality tier %q (supported: auto, high, medium, low)", s)
	}
}

// AllowedTags returns the allow-list for tier. The returned map is fresh and
// owned by the caller.
func AllowedTags(tier Tier) map[int]struct{} {
	out := make(map[int]struct{})
	if tags, ok := tierTags[tier]; ok {
		for _, t := range tags {
			out[t] = struct{}{}
		}
		return out
	}
	for _, tags := range tierTags {
		for _, t := range tags {
			out[t] = struct{}{}
		}
	}
	for _, t := range autoOnlyTags {
		out[t] = struct{}{}
	}
	return out
}

// TieBreak orders descriptors by bitrate, highest first. A missing bitrate
// sorts after any known bitrate. It returns a negative number when a should
// come before b.
func TieBreak(a, b Descriptor) int {
	switch {
	case a.Bitrate == nil && b.Bitrate == nil:
		return 0
	case a.Bitrate == nil:
		return 1
	case b.Bitrate == nil:
		return -1
	case *a.Bitrate > *b.Bitrate:
		return -1
	case *a.Bitrate < *b.Bitrate:
		return 1
	default:
		return 0
	}
}

// Select filters candidates by the tier's allow-list, orders them by
// TieBreak and returns the first selectable one.
func Select(tier Tier, candidates []Descriptor) (Descriptor, bool) {
	allowed := AllowedTags(tier)
	filtered := make([]Descriptor, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := allowed[c.Itag]; ok {
			filtered = append(filtered, c)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return TieBreak(filtered[i], filtered[j]) < 0
	})
	for _, c := range filtered {
		if c.Selectable() {
			return c, true
		}
	}
	return Descriptor{}, false
}
