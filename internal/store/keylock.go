package store

import (
	"sync"
)

// KeyLock serializes work per user key. Within one user's timeline,
// events must be processed in arrival order with no concurrent
// read-modify-write of the session; the sweeper acquires the same lock
// before evicting, so it never races an in-flight event.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyLock creates an empty key lock.
func NewKeyLock() *KeyLock {
	return &KeyLock{locks: make(map[string]*userLock)}
}

// Lock acquires the lock for key, blocking until it is free.
func (k *KeyLock) Lock(key string) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &userLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
}

// Unlock releases the lock for key. The entry is removed once no
// goroutine holds or waits on it, so idle users cost nothing.
func (k *KeyLock) Unlock(key string) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		k.mu.Unlock()
		panic("store: unlock of unheld key " + key)
	}
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	l.mu.Unlock()
}
