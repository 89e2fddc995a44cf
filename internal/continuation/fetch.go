// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package continuation materializes paginated catalog lists by following
// continuation tokens, bounded by depth and protected against token cycles.
package continuation

import (
	"context"
	"fmt"
)

// Page is one page of a paginated list. An empty Continuation marks the
// terminal page.
type Page[T any] struct {
	Items        []T
	Continuation string
}

// Terminal reports whether no further page exists.
func (p Page[T]) Terminal() bool { return p.Continuation == "" }

// NextFunc fetches the page addressed by token.
type NextFunc[T any] func(ctx context.Context, token string) (Page[T], error)

// StopReason explains why a fetch ended.
type StopReason string

const (
	StopTerminal  StopReason = "terminal"
	StopEmptyPage StopReason = "empty_page"
	StopMaxDepth  StopReason = "max_depth"
	StopCycle     StopReason = "cycle"
	StopFailed    StopReason = "failed"
	StopCancelled StopReason = "cancelled"
)

// Result is the aggregated list. It is populated even when FetchAll returns
// an error: partial pages are never discarded.
type Result[T any] struct {
	Items []T
	Calls int
	Stop  StopReason
}

// PageError wraps the failure of a single next call.
type PageError struct {
	Token string
	Depth int
	Err   error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("continuation: page %d (token %q): %v", e.Depth, e.Token, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// FetchAll follows continuation tokens from seed, appending items not equal
// to one already collected.
func FetchAll[T comparable](ctx context.Context, seed Page[T], next NextFunc[T], maxDepth int) (Result[T], error) {
	return FetchAllBy(ctx, seed, next, maxDepth, func(v T) T { return v })
}

// FetchAllBy is FetchAll with identity defined by key.
//
// The loop makes at most maxDepth calls to next and stops early on a
// terminal page, an empty page, a token already seen (the seed token counts
// as seen), a failed call or a cancelled ctx.
func FetchAllBy[T any, K comparable](ctx context.Context, seed Page[T], next NextFunc[T], maxDepth int, key func(T) K) (Result[T], error) {
	res := Result[T]{Items: append([]T(nil), seed.Items...)}
	seen := make(map[K]struct{}, len(seed.Items))
	for _, it := range seed.Items {
		seen[key(it)] = struct{}{}
	}

	token := seed.Continuation
	visited := map[string]struct{}{}
	if token != "" {
		visited[token] = struct{}{}
	}

	for depth := 0; ; depth++ {
		if token == "" {
			res.Stop = StopTerminal
			return res, nil
		}
		if depth >= maxDepth {
			res.Stop = StopMaxDepth
			return res, nil
		}
		if err := ctx.Err(); err != nil {
			res.Stop = StopCancelled
			return res, err
		}

		page, err := next(ctx, token)
		res.Calls++
		if err != nil {
			res.Stop = StopFailed
			return res, &PageError{Token: token, Depth: depth, Err: err}
		}
		if len(page.Items) == 0 {
			res.Stop = StopEmptyPage
			return res, nil
		}
		for _, it := range page.Items {
			k := key(it)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			res.Items = append(res.Items, it)
		}

		token = page.Continuation
		if token == "" {
			continue
		}
		if _, again := visited[token]; again {
			res.Stop = StopCycle
			return res, nil
		}
		visited[token] = struct{}{}
	}
}
