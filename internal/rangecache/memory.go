// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rangecache

import "sync"

type memEntry struct {
	data  []byte
	spans Spans
}

// Memory is an in-process Cache. Contents are lost on restart.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*memEntry
}

// NewMemory returns an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*memEntry)}
}

func (m *Memory) IsCached(key string, offset, length int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return length <= 0
	}
	return e.spans.Covers(offset, offset+length)
}

func (m *Memory) Read(key string, offset, length int64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok || !e.spans.Covers(offset, offset+length) {
		return nil, ErrNotCached
	}
	out := make([]byte, length)
	copy(out, e.data[offset:offset+length])
	return out, nil
}

func (m *Memory) Write(key string, offset int64, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		e = &memEntry{}
		m.entries[key] = e
	}
	end := offset + int64(len(p))
	if int64(len(e.data)) < end {
		grown := make([]byte, end)
		copy(grown, e.data)
		e.data = grown
	}
	copy(e.data[offset:end], p)
	e.spans = e.spans.Add(offset, end)
	return nil
}

func (m *Memory) CachedBytes(key string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[key]; ok {
		return e.spans.Total()
	}
	return 0
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
