// Package lock provides keyed in-process locking for wallet and trust-score
// operations. The database enforces correctness with row locks; this keeps a
// single instance from queueing dozens of conflicting transactions for the
// same user or event.
package lock

import (
	"context"
	"sync"
	"time"
)

// keyMutex wraps a mutex stored per key.
type keyMutex struct {
	mu sync.Mutex
}

// KeyedLock provides per-key locking. Keys are caller-defined strings,
// typically "user:<id>" or "event:<id>".
type KeyedLock struct {
	locks sync.Map // map[string]*keyMutex
	pool  sync.Pool
}

// New creates a new KeyedLock instance.
func New() *KeyedLock {
	return &KeyedLock{
		pool: sync.Pool{
			New: func() any {
				return &keyMutex{}
			},
		},
	}
}

// getLock retrieves or creates a mutex for the given key.
func (kl *KeyedLock) getLock(key string) *keyMutex {
	if v, ok := kl.locks.Load(key); ok {
		return v.(*keyMutex)
	}

	newLock := kl.pool.Get().(*keyMutex)
	actual, loaded := kl.locks.LoadOrStore(key, newLock)
	if loaded {
		// Another goroutine created the lock first, return ours to pool.
		kl.pool.Put(newLock)
	}
	return actual.(*keyMutex)
}

// Lock acquires the lock for a key.
func (kl *KeyedLock) Lock(key string) {
	kl.getLock(key).mu.Lock()
}

// Unlock releases the lock for a key.
func (kl *KeyedLock) Unlock(key string) {
	if v, ok := kl.locks.Load(key); ok {
		v.(*keyMutex).mu.Unlock()
	}
}

// TryLock attempts to acquire the lock without blocking.
func (kl *KeyedLock) TryLock(key string) bool {
	return kl.getLock(key).mu.TryLock()
}

// WithLock executes fn while holding the key's lock.
func (kl *KeyedLock) WithLock(key string, fn func() error) error {
	kl.Lock(key)
	defer kl.Unlock(key)
	return fn()
}

// LockWithTimeout attempts to acquire the lock within the timeout.
func (kl *KeyedLock) LockWithTimeout(ctx context.Context, key string, timeout time.Duration) bool {
	lock := kl.getLock(key)

	done := make(chan struct{})
	go func() {
		lock.mu.Lock()
		close(done)
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-done:
		return true
	case <-timeoutCtx.Done():
		// The waiting goroutine will eventually acquire; release it then.
		go func() {
			<-done
			lock.mu.Unlock()
		}()
		return false
	}
}
