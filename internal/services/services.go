// Package services implements the geospatial analytics engine: coverage
// matching, nearest dealer lookup, route frequency, location history and
// order status anomaly scanning. Every operation is request scoped; the only
// shared state is what the store persists.
package services

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrNoCandidates means the candidate set was empty after filtering.
	ErrNoCandidates = errors.New("no candidates")
	ErrInvalidInput = errors.New("invalid input")
)

// Clock supplies "now". Tests pin it.
type Clock func() time.Time

// SystemClock returns the current UTC time.
func SystemClock() time.Time { return time.Now().UTC() }

// KeyedMutex serialises work per key, e.g. per dealer.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[uint]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[uint]*keyedLock)}
}

// Lock blocks until key is free and returns its unlock func.
func (k *KeyedMutex) Lock(key uint) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
