// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package memo holds the tiny FIFO of recent content-id → stream URL
// resolutions shared by every reader.
package memo

import "sync"

// DefaultCapacity covers the dominant access pattern: adjacent chunk reads of
// the item currently playing plus the one being prefetched.
const DefaultCapacity = 2

type slot struct {
	key string
	uri string
	set bool
}

// Ring is a fixed-capacity, insertion-ordered map. Inserting past capacity
// evicts the oldest slot regardless of how recently it was read.
type Ring struct {
	mu      sync.RWMutex
	slots   []slot
	next    int
	onEvict func(key string)
}

// New returns a ring holding at most capacity entries. A non-positive
// capacity falls back to DefaultCapacity.
func New(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{slots: make([]slot, capacity)}
}

// OnEvict registers a hook invoked (outside the lock) with the evicted key.
func (r *Ring) OnEvict(fn func(key string)) {
	r.mu.Lock()
	r.onEvict = fn
	r.mu.Unlock()
}

// Get returns the URI recorded for key.
func (r *Ring) Get(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.slots {
		if s.set && s.key == key {
			return s.uri, true
		}
	}
	return "", false
}

// Put records key → uri. An existing key is updated in place and keeps its
// position in the eviction order.
func (r *Ring) Put(key, uri string) {
	r.mu.Lock()
	for i := range r.slots {
		if r.slots[i].set && r.slots[i].key == key {
			r.slots[i].uri = uri
			r.mu.Unlock()
			return
		}
	}

	evicted := r.slots[r.next]
	r.slots[r.next] = slot{key: key, uri: uri, set: true}
	r.next = (r.next + 1) % len(r.slots)
	hook := r.onEvict
	r.mu.Unlock()

	if evicted.set && hook != nil {
		hook(evicted.key)
	}
}

// Len returns the number of occupied slots.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.slots {
		if s.set {
			n++
		}
	}
	return n
}

// Cap returns the fixed capacity.
func (r *Ring) Cap() int { return len(r.slots) }

// Reset drops every entry.
func (r *Ring) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.slots {
		r.slots[i] = slot{}
	}
	r.next = 0
}
