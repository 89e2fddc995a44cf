// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transportErr() error {
	return &Error{Sentinel: ErrUnavailable, Operation: "player", Err: errors.New("connection refused")}
}

func TestCircuitBreaker_InitialState(t *testing.T) {
	cb := NewCircuitBreaker(3, 30*time.Second)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, 30*time.Second)

	for i := 0; i < 2; i++ {
		require.Error(t, cb.Execute(transportErr))
		assert.Equal(t, StateClosed, cb.State(), "call %d", i+1)
	}
	require.Error(t, cb.Execute(transportErr))
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)
	now := time.Unix(1000, 0)
	cb.now = func() time.Time { return now }

	require.Error(t, cb.Execute(transportErr))
	require.Equal(t, StateOpen, cb.State())

	now = now.Add(2 * time.Minute)
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)
	now := time.Unix(1000, 0)
	cb.now = func() time.Time { return now }

	require.Error(t, cb.Execute(transportErr))
	now = now.Add(2 * time.Minute)
	require.Error(t, cb.Execute(transportErr))
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_IgnoresClientErrors(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)

	notFound := func() error {
		return &Error{Sentinel: ErrUpstreamStatus, Operation: "player", Status: 404}
	}
	cancelled := func() error {
		return &Error{Sentinel: ErrUnavailable, Operation: "player", Err: context.Canceled}
	}
	decode := func() error {
		return &Error{Sentinel: ErrBadResponse, Operation: "player", Err: errors.New("eof")}
	}

	for _, fn := range []func() error{notFound, cancelled, decode} {
		require.Error(t, cb.Execute(fn))
		assert.Equal(t, StateClosed, cb.State())
	}

	require.Error(t, cb.Execute(func() error {
		return &Error{Sentinel: ErrUpstreamStatus, Operation: "player", Status: 503}
	}))
	assert.Equal(t, StateOpen, cb.State())
}
