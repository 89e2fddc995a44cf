// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package download

import (
	"maps"
	"sync"

	"github.com/ManuGH/streamres/internal/log"
)

// Adapter submits work to a Manager and keeps the externally observed state
// map in sync with its notifications.
type Adapter struct {
	m Manager

	mu        sync.RWMutex
	states    map[string]State
	observers map[int]func(Event)
	nextID    int
}

// NewAdapter registers itself as m's listener.
func NewAdapter(m Manager) *Adapter {
	a := &Adapter{
		m:         m,
		states:    make(map[string]State),
		observers: make(map[int]func(Event)),
	}
	m.SetListener(a.onEvent)
	return a
}

// Submit forwards a download request for contentID.
func (a *Adapter) Submit(contentID string) error {
	return a.m.Add(Request{ContentID: contentID})
}

// Cancel removes the download for contentID.
func (a *Adapter) Cancel(contentID string) error {
	return a.m.Remove(contentID)
}

// States returns a copy of the current state map.
func (a *Adapter) States() map[string]State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return maps.Clone(a.states)
}

// State returns the mirrored state for contentID.
func (a *Adapter) State(contentID string) (State, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.states[contentID]
	return s, ok
}

// Subscribe registers fn for every event and returns a function removing it.
func (a *Adapter) Subscribe(fn func(Event)) (unsubscribe func()) {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.observers[id] = fn
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		delete(a.observers, id)
		a.mu.Unlock()
	}
}

func (a *Adapter) onEvent(ev Event) {
	a.mu.Lock()
	old, had := a.states[ev.ContentID]
	if ev.State == StateRemoving {
		delete(a.states, ev.ContentID)
	} else {
		a.states[ev.ContentID] = ev.State
	}
	observers := make([]func(Event), 0, len(a.observers))
	for _, fn := range a.observers {
		observers = append(observers, fn)
	}
	a.mu.Unlock()

	logger := log.WithComponent("download")
	logEvent := logger.Debug().
		Str(log.FieldEvent, "download.state").
		Str(log.FieldContentID, ev.ContentID).
		Str(log.FieldAttemptID, ev.AttemptID).
		Str(log.FieldNewState, ev.State.String())
	if had {
		logEvent = logEvent.Str(log.FieldOldState, old.String())
	}
	if ev.Err != nil {
		logEvent = logEvent.Err(ev.Err)
	}
	logEvent.Msg("download state changed")

	for _, fn := range observers {
		fn(ev)
	}
}
