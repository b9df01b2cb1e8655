// Package sessionlock is a per-session mutual-exclusion lock so two
// concurrent messages on the same session never interleave their history
// reads and writes. It is deliberately an interface over a
// mechanism, grounded on the teacher's context.Context-threaded request
// pattern (internal/context/context.go) generalized from per-request
// values to a per-session held lock.
package sessionlock

import (
	"context"
	"sync"
	"time"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
)

// Locker acquires and releases a per-session lock. Implementations must
// be safe for concurrent use by multiple goroutines.
type Locker interface {
	// Acquire makes a single, non-blocking attempt to take the lock for
	// sessionID. If it is already held, Acquire returns a CONFLICT error
	// immediately rather than waiting for the holder to release.
	// timeout is passed through to implementations, but neither
	// InMemoryLocker nor PostgresLocker reads it: a held lock stays held
	// until its release func runs and is never reclaimed on age. It is not
	// an acquire-wait budget either. On success it returns a release func
	// that must be called exactly once.
	Acquire(ctx context.Context, sessionID string, timeout time.Duration) (release func(), err error)
}

// heldLock tracks one session's lock state for the in-memory Locker.
type heldLock struct {
	mu       sync.Mutex
	lastUsed time.Time
}

// InMemoryLocker is a single-process Locker backed by a map of per-session
// mutexes, with a periodic sweep that evicts locks unused past sweepAfter
// so the map does not grow unboundedly across the process lifetime.
// The reference implementation is in-memory; a distributed deployment
// swaps in PostgresLocker behind the same interface.
type InMemoryLocker struct {
	mu         sync.Mutex
	locks      map[string]*heldLock
	sweepAfter time.Duration
}

// NewInMemoryLocker builds a locker that sweeps entries idle past
// sweepAfter. A sweepAfter of 0 selects the 30s default.
func NewInMemoryLocker(sweepAfter time.Duration) *InMemoryLocker {
	if sweepAfter <= 0 {
		sweepAfter = 30 * time.Second
	}
	l := &InMemoryLocker{locks: make(map[string]*heldLock), sweepAfter: sweepAfter}
	return l
}

// Run starts the periodic sweep goroutine; it returns when ctx is done.
func (l *InMemoryLocker) Run(ctx context.Context) {
	ticker := time.NewTicker(l.sweepAfter)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *InMemoryLocker) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := time.Now().Add(-l.sweepAfter)
	for id, hl := range l.locks {
		if hl.mu.TryLock() {
			if hl.lastUsed.Before(cutoff) {
				delete(l.locks, id)
			}
			hl.mu.Unlock()
		}
	}
}

func (l *InMemoryLocker) lockFor(sessionID string) *heldLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	hl, ok := l.locks[sessionID]
	if !ok {
		hl = &heldLock{}
		l.locks[sessionID] = hl
	}
	return hl
}

// Acquire implements Locker: a single non-blocking try. A session already
// locked by another in-flight request fails fast with CONFLICT instead of
// waiting for that request to finish. timeout is ignored, and a held lock
// is never reclaimed: the periodic sweep removes only entries that no
// request currently holds.
func (l *InMemoryLocker) Acquire(ctx context.Context, sessionID string, timeout time.Duration) (func(), error) {
	hl := l.lockFor(sessionID)

	if !hl.mu.TryLock() {
		return nil, apperrors.Conflict("session " + sessionID + " is locked by another in-flight request")
	}

	hl.lastUsed = time.Now()
	return func() {
		hl.lastUsed = time.Now()
		hl.mu.Unlock()
	}, nil
}
