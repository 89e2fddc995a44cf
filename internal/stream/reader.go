// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"context"
	"errors"
	"io"
)

const defaultChunk = 256 << 10

// ErrUnknownSize is returned by Seek relative to the end when the content
// length was never reported by the catalog.
var ErrUnknownSize = errors.New("stream: content size unknown")

// Reader adapts a Source to io.ReadSeeker for one content id. It is not safe
// for concurrent use.
type Reader struct {
	ctx   context.Context
	src   *Source
	id    string
	size  int64
	pos   int64
	chunk int64
}

// Open resolves contentID once and returns a reader positioned at 0.
func (s *Source) Open(ctx context.Context, contentID string) (*Reader, error) {
	if _, err := s.res.Resolve(ctx, resolverRequest(contentID)); err != nil {
		return nil, err
	}
	size := int64(-1)
	if a, err := s.res.Availability(ctx, contentID); err == nil && a.Known {
		size = a.ContentLength
	}
	return &Reader{ctx: ctx, src: s, id: contentID, size: size, chunk: defaultChunk}, nil
}

// Size returns the content length, or -1 when unknown.
func (r *Reader) Size() int64 { return r.size }

func (r *Reader) Read(p []byte) (int, error) {
	if r.size >= 0 && r.pos >= r.size {
		return 0, io.EOF
	}
	want := int64(len(p))
	if want > r.chunk {
		want = r.chunk
	}
	if r.size >= 0 && r.pos+want > r.size {
		want = r.size - r.pos
	}
	data, err := r.src.ReadAt(r.ctx, r.id, r.pos, want)
	n := copy(p, data)
	r.pos += int64(n)
	return n, err
}

func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.pos + offset
	case io.SeekEnd:
		if r.size < 0 {
			return 0, ErrUnknownSize
		}
		abs = r.size + offset
	default:
		return 0, errors.New("stream: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("stream: negative position")
	}
	r.pos = abs
	return abs, nil
}
