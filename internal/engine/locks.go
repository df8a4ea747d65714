package engine

import (
	"context"
	"sync"
	"time"
)

// LockArena hands out one lock per ledger id so that executions against
// different ledgers run fully in parallel while executions against the
// same ledger serialize. There is deliberately no global lock anywhere
// in the trade path.
type LockArena struct {
	mu    sync.Mutex
	locks map[uint64]chan struct{}
}

// NewLockArena creates an empty arena. Ledger locks are created lazily
// on first acquisition and kept for the process lifetime.
func NewLockArena() *LockArena {
	return &LockArena{locks: make(map[uint64]chan struct{})}
}

func (a *LockArena) lockFor(ledgerID uint64) chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()

	l, ok := a.locks[ledgerID]
	if !ok {
		l = make(chan struct{}, 1)
		a.locks[ledgerID] = l
	}
	return l
}

// Acquire takes the ledger's lock, waiting at most timeout. On success
// it returns a release func that must be called exactly once, on commit
// or abort. On timeout or context cancellation it returns false and the
// caller must fail the request as retryable rather than hang.
func (a *LockArena) Acquire(ctx context.Context, ledgerID uint64, timeout time.Duration) (func(), bool) {
	l := a.lockFor(ledgerID)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case l <- struct{}{}:
		return func() { <-l }, true
	case <-timer.C:
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
}
