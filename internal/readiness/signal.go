// Package readiness provides the single-slot "became attached" notification shared
// between the connectivity supervisor and the tasks that wait for an upstream link.
package readiness

import (
	"context"
	"sync/atomic"
)

// Signal is an edge-triggered, single-slot notification. At most one release is
// pending at any time: releasing while a notification is already pending leaves
// exactly one pending. Each pending notification is consumed by at most one waiter.
type Signal struct {
	slot     chan struct{}
	releases atomic.Uint64
}

// New returns a Signal with an empty slot.
func New() *Signal {
	return &Signal{slot: make(chan struct{}, 1)}
}

// Release makes a notification pending. It never blocks.
func (s *Signal) Release() {
	s.releases.Add(1)
	select {
	case s.slot <- struct{}{}:
	default:
		// already pending; overwrite, don't accumulate
	}
}

// TryTake consumes the pending notification if there is one.
func (s *Signal) TryTake() bool {
	select {
	case <-s.slot:
		return true
	default:
		return false
	}
}

// Wait blocks until a notification is pending and consumes it. It returns
// ctx.Err() if ctx ends first, leaving the slot untouched.
func (s *Signal) Wait(ctx context.Context) error {
	select {
	case <-s.slot:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending reports whether a notification is waiting to be consumed.
func (s *Signal) Pending() bool {
	return len(s.slot) > 0
}

// Releases returns the total number of Release calls.
func (s *Signal) Releases() uint64 {
	return s.releases.Load()
}
