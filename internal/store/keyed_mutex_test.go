package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexExclusion(t *testing.T) {
	km := newKeyedMutex()

	var counter, max int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("card1")
			defer km.Unlock("card1")

			mu.Lock()
			counter++
			if counter > max {
				max = counter
			}
			mu.Unlock()

			mu.Lock()
			counter--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, max, "at most one holder per key at a time")
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := newKeyedMutex()

	km.Lock("card1")
	done := make(chan struct{})
	go func() {
		km.Lock("card2")
		km.Unlock("card2")
		close(done)
	}()
	<-done // a different key is not blocked by the held one
	km.Unlock("card1")
}

func TestKeyedMutexReclaimsIdleEntries(t *testing.T) {
	km := newKeyedMutex()

	var wg sync.WaitGroup
	keys := []string{"card1", "card2", "card3"}
	for _, key := range keys {
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func(key string) {
				defer wg.Done()
				km.Lock(key)
				km.Unlock(key)
			}(key)
		}
	}
	wg.Wait()

	assert.Equal(t, 0, km.size(), "idle entries must be reclaimed")
}

func TestKeyedMutexUnlockUnheldPanics(t *testing.T) {
	km := newKeyedMutex()
	assert.Panics(t, func() { km.Unlock("card1") })
}
