// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import "github.com/ManuGH/streamres/internal/format"

// OutcomeKind is the closed set of playability verdicts.
type OutcomeKind int

const (
	OutcomeOK OutcomeKind = iota
	OutcomeUnplayable
	OutcomeLoginRequired
	OutcomeMismatched
	OutcomeOther
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeUnplayable:
		return "unplayable"
	case OutcomeLoginRequired:
		return "login_required"
	case OutcomeMismatched:
		return "mismatched"
	default:
		return "other"
	}
}

// Outcome is one classified player response. Formats is set only for
// OutcomeOK; Code carries the raw status for OutcomeOther and Reason the
// upstream explanation when present.
type Outcome struct {
	Kind     OutcomeKind
	Formats  []format.Descriptor
	Code     string
	Reason   string
	EchoedID string
}

// Classify turns a player response for requestedID into an Outcome.
// An echoed id that differs from the requested one is Mismatched no matter
// what the status or formats say.
func Classify(requestedID string, resp *PlayerResponse) Outcome {
	echoed := resp.EchoedID()
	if echoed != requestedID {
		return Outcome{Kind: OutcomeMismatched, EchoedID: echoed}
	}
	out := Outcome{
		EchoedID: echoed,
		Code:     resp.PlayabilityStatus.Status,
		Reason:   resp.PlayabilityStatus.Reason,
	}
	switch resp.PlayabilityStatus.Status {
	case StatusOK:
		out.Kind = OutcomeOK
		out.Formats = resp.Formats()
	case StatusUnplayable:
		out.Kind = OutcomeUnplayable
	case StatusLoginRequired:
		out.Kind = OutcomeLoginRequired
	default:
		out.Kind = OutcomeOther
	}
	return out
}
