// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package formatstore

import (
	"context"
	"sync"

	"github.com/ManuGH/streamres/internal/format"
)

// MemoryStore implements Store with a map.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]format.Descriptor
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]format.Descriptor)}
}

func (s *MemoryStore) Put(_ context.Context, contentID string, d format.Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[contentID] = clone(d.WithoutURL())
	return nil
}

func (s *MemoryStore) Get(_ context.Context, contentID string) (format.Descriptor, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.data[contentID]
	if !ok {
		return format.Descriptor{}, false, nil
	}
	return clone(d), true, nil
}

func (s *MemoryStore) Close() error { return nil }

// clone deep-copies the optional fields so callers cannot alias stored state.
func clone(d format.Descriptor) format.Descriptor {
	cp := func(p *int64) *int64 {
		if p == nil {
			return nil
		}
		v := *p
		return &v
	}
	d.Bitrate = cp(d.Bitrate)
	d.ContentLength = cp(d.ContentLength)
	d.LastModified = cp(d.LastModified)
	if d.LoudnessDB != nil {
		v := *d.LoudnessDB
		d.LoudnessDB = &v
	}
	if d.URL != nil {
		v := *d.URL
		d.URL = &v
	}
	return d
}
