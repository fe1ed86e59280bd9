// Package lock provides per-player locking so that writes for one player id
// are applied one at a time.
package lock

import (
	"context"
	"sync"
	"time"
)

// playerMutex wraps a mutex with reference counting for cleanup.
type playerMutex struct {
	mu       sync.Mutex
	refCount int
}

// UserLock serializes work per player id. Different ids never contend.
type UserLock struct {
	locks sync.Map // map[int64]*playerMutex
	pool  sync.Pool
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{
		pool: sync.Pool{
			New: func() any {
				return &playerMutex{}
			},
		},
	}
}

// getLock retrieves or creates a mutex for the given player ID.
func (ul *UserLock) getLock(playerID int64) *playerMutex {
	if v, ok := ul.locks.Load(playerID); ok {
		return v.(*playerMutex)
	}

	newLock := ul.pool.Get().(*playerMutex)
	newLock.refCount = 0

	actual, loaded := ul.locks.LoadOrStore(playerID, newLock)
	if loaded {
		// Another goroutine created the lock first
		ul.pool.Put(newLock)
	}
	return actual.(*playerMutex)
}

// Lock acquires the lock for a player.
func (ul *UserLock) Lock(playerID int64) {
	l := ul.getLock(playerID)
	l.mu.Lock()
	l.refCount++
}

// Unlock releases the lock for a player.
func (ul *UserLock) Unlock(playerID int64) {
	if v, ok := ul.locks.Load(playerID); ok {
		l := v.(*playerMutex)
		l.refCount--
		l.mu.Unlock()
	}
}

// TryLock attempts to acquire the lock without blocking.
func (ul *UserLock) TryLock(playerID int64) bool {
	l := ul.getLock(playerID)
	if l.mu.TryLock() {
		l.refCount++
		return true
	}
	return false
}

// LockWithTimeout attempts to acquire the lock within timeout.
// Returns false if the timeout or ctx expired first.
func (ul *UserLock) LockWithTimeout(ctx context.Context, playerID int64, timeout time.Duration) bool {
	l := ul.getLock(playerID)

	done := make(chan struct{})
	go func() {
		l.mu.Lock()
		close(done)
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-done:
		l.refCount++
		return true
	case <-timeoutCtx.Done():
		// The waiter still acquires eventually; hand the lock straight back.
		go func() {
			<-done
			l.mu.Unlock()
		}()
		return false
	}
}

// WithLock executes fn while holding the player's lock.
func (ul *UserLock) WithLock(playerID int64, fn func() error) error {
	ul.Lock(playerID)
	defer ul.Unlock(playerID)
	return fn()
}

// WithLockContext executes fn while holding the player's lock,
// giving up with ErrLockTimeout if it cannot be taken in time.
func (ul *UserLock) WithLockContext(ctx context.Context, playerID int64, timeout time.Duration, fn func() error) error {
	if !ul.LockWithTimeout(ctx, playerID, timeout) {
		return ErrLockTimeout
	}
	defer ul.Unlock(playerID)

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fn()
	}
}

// IsLocked checks if a player currently has an active lock.
// This is a point-in-time check and may change immediately after.
func (ul *UserLock) IsLocked(playerID int64) bool {
	if v, ok := ul.locks.Load(playerID); ok {
		l := v.(*playerMutex)
		if l.mu.TryLock() {
			l.mu.Unlock()
			return false
		}
		return true
	}
	return false
}
