// Package lock provides the short per-account lock taken in front of every
// balance mutation. A caller that cannot get it within the wait fails with
// ACCOUNT_TRANSACTION_LOCK. The database row lock is still taken afterwards.
package lock

import (
	"context"
	"sync"
	"time"

	"account_system/internal/domain"
)

// Defaults used when the configuration leaves them unset
const (
	DefaultWait  = time.Second
	DefaultLease = 15 * time.Second

	retryInterval = 50 * time.Millisecond
)

// Key returns the lock key for an account number.
func Key(accountNumber string) string {
	return "ACLK:" + accountNumber
}

// LocalLocker is an in-process AccountLocker for single-instance deployments and tests.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
	wait  time.Duration
}

// localLock is dropped from the map once no holder or waiter references it.
type localLock struct {
	sem  chan struct{}
	refs int
}

// NewLocalLocker creates a LocalLocker that gives up after wait.
func NewLocalLocker(wait time.Duration) *LocalLocker {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &LocalLocker{locks: make(map[string]*localLock), wait: wait}
}

// Lock acquires the account's lock or fails with domain.ErrAccountTransactionLock.
func (l *LocalLocker) Lock(ctx context.Context, accountNumber string) (func(), error) {
	key := Key(accountNumber)
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &localLock{sem: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	timer := time.NewTimer(l.wait)
	defer timer.Stop()
	select {
	case entry.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-entry.sem
				l.release(key, entry)
			})
		}, nil
	case <-timer.C:
		l.release(key, entry)
		return nil, domain.ErrAccountTransactionLock
	case <-ctx.Done():
		l.release(key, entry)
		return nil, ctx.Err()
	}
}

func (l *LocalLocker) release(key string, entry *localLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
}

