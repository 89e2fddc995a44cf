// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrUnavailable    = errors.New("catalog: host unreachable or transport failure")
	ErrUpstreamStatus = errors.New("catalog: unexpected HTTP status")
	ErrBadResponse    = errors.New("catalog: invalid response format or malformed data")
	ErrCircuitOpen    = errors.New("catalog: circuit breaker is open")
)

// Error wraps a sentinel with the failing operation and transport detail.
type Error struct {
	Sentinel  error
	Operation string
	Status    int
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the sentinel and the lower-level cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Err}
}

// Code returns a short stable classification suitable for metrics labels and
// remote-error codes.
func (e *Error) Code() string {
	switch {
	case errors.Is(e.Sentinel, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(e.Sentinel, ErrUpstreamStatus):
		return fmt.Sprintf("http_%d", e.Status)
	case errors.Is(e.Sentinel, ErrBadResponse):
		return "decode"
	default:
		return "transport"
	}
}
