// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package rangecache stores byte ranges of content keyed by content id. It
// backs both playback reads and downloads. Entries are retained until
// explicitly removed.
package rangecache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrNotCached is returned by Read when part of the requested range is absent.
var ErrNotCached = errors.New("rangecache: range not cached")

// Cache is the byte-range store contract consumed by the resolver, the chunk
// source and the download queue. IsCached never fails: a fault is reported
// as a miss.
type Cache interface {
	IsCached(key string, offset, length int64) bool
	Read(key string, offset, length int64) ([]byte, error)
	Write(key string, offset int64, p []byte) error
	CachedBytes(key string) int64
	Remove(key string) error
}

// fileKey maps a content id to a file name. Distinct ids never share a file.
func fileKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
