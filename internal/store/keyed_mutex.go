package store

import "sync"

// keyedMutex provides one mutex per card id, created on demand and reclaimed
// once no goroutine holds or waits on it. Chats on different cards never
// contend; there is no global lock held during an append.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*mutexEntry
}

type mutexEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: make(map[string]*mutexEntry)}
}

// Lock acquires the mutex for key, blocking until it is available.
func (k *keyedMutex) Lock(key string) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &mutexEntry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for key and reclaims the entry when idle.
func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		k.mu.Unlock()
		panic("store: unlock of unheld keyed mutex: " + key)
	}
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}

// size returns the number of live entries. Test hook.
func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
