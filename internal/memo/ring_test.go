// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package memo

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRing_FIFOEviction(t *testing.T) {
	r := New(2)
	r.Put("A", "uri-a")
	r.Put("B", "uri-b")
	r.Put("C", "uri-c")

	_, ok := r.Get("A")
	assert.False(t, ok, "oldest entry must be evicted")

	uri, ok := r.Get("B")
	require.True(t, ok)
	assert.Equal(t, "uri-b", uri)

	uri, ok = r.Get("C")
	require.True(t, ok)
	assert.Equal(t, "uri-c", uri)
}

func TestRing_ReadsDoNotRefreshRecency(t *testing.T) {
	r := New(2)
	r.Put("A", "1")
	r.Put("B", "2")

	// An LRU would keep A after this read; FIFO must not.
	_, _ = r.Get("A")
	r.Put("C", "3")

	_, ok := r.Get("A")
	assert.False(t, ok)
	_, ok = r.Get("B")
	assert.True(t, ok)
}

func TestRing_PutExistingUpdatesInPlace(t *testing.T) {
	r := New(2)
	r.Put("A", "old")
	r.Put("B", "b")
	r.Put("A", "new")

	uri, ok := r.Get("A")
	require.True(t, ok)
	assert.Equal(t, "new", uri)
	assert.Equal(t, 2, r.Len())

	// A still occupies the oldest slot.
	r.Put("C", "c")
	_, ok = r.Get("A")
	assert.False(t, ok)
}

func TestRing_OnEvict(t *testing.T) {
	r := New(1)
	var evicted []string
	r.OnEvict(func(k string) { evicted = append(evicted, k) })

	r.Put("A", "1")
	r.Put("B", "2")
	r.Put("C", "3")
	assert.Equal(t, []string{"A", "B"}, evicted)
}

func TestRing_DefaultCapacityAndReset(t *testing.T) {
	r := New(0)
	assert.Equal(t, DefaultCapacity, r.Cap())

	r.Put("A", "1")
	r.Reset()
	assert.Zero(t, r.Len())
	_, ok := r.Get("A")
	assert.False(t, ok)
}

func TestRing_ConcurrentAccess(t *testing.T) {
	r := New(2)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				key := fmt.Sprintf("k%d", (i+j)%4)
				r.Put(key, "uri-"+key)
				if uri, ok := r.Get(key); ok {
					// No partially-written entry is ever observable.
					assert.Equal(t, "uri-"+key, uri)
				}
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, r.Len(), 2)
}
