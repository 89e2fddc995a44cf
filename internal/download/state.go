// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package download forwards content into a download manager and mirrors the
// manager's per-content state for observers.
package download

import (
	"errors"
	"fmt"
	"strings"
)

// State is a download's lifecycle state as reported by the manager.
type State int

const (
	StateQueued State = iota
	StateDownloading
	StateCompleted
	StateFailed
	StateRemoving
	StateRestarting
	StateStopped
)

var stateNames = [...]string{
	StateQueued:      "queued",
	StateDownloading: "downloading",
	StateCompleted:   "completed",
	StateFailed:      "failed",
	StateRemoving:    "removing",
	StateRestarting:  "restarting",
	StateStopped:     "stopped",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition happens without a new Add.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateStopped
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if strings.EqualFold(name, string(b)) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown download state %q", b)
}

var (
	ErrActive  = errors.New("download: already queued or running")
	ErrUnknown = errors.New("download: no such download")
	ErrClosed  = errors.New("download: manager closed")
)

// Request asks the manager to make contentID fully available locally.
type Request struct {
	ContentID string `json:"content_id"`
}

// Event is one state change notification.
type Event struct {
	ContentID string
	AttemptID string
	State     State
	Err       error
}

// Manager is the download manager contract: submit, remove by key, and a
// single change listener. Listeners are called synchronously and must not
// call back into the manager.
type Manager interface {
	Add(req Request) error
	Remove(contentID string) error
	SetListener(fn func(Event))
}
