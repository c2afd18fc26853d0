// Package lock implements the distributed locking primitives the
// Release/Deploy pipeline uses to serialize concurrent operations
// against the same app (spec.md §4.2).
package lock

import (
	"sync"
	"time"
)

// KV is the minimal get-or-set/compare-delete surface CacheLock needs.
// A production deployment backs this with a shared store (redis,
// etcd); MemoryKV below is the single-process stand-in used by tests
// and by any controller replica that doesn't need cross-process locks.
type KV interface {
	// SetNX stores value under key with the given ttl only if key is
	// absent or expired, and returns the value now stored under key
	// (either the one just written, or whatever was already there).
	SetNX(key, value string, ttl time.Duration) (stored string, err error)
	// Get returns the current value and whether it exists (and is
	// unexpired).
	Get(key string) (value string, ok bool, err error)
	// CompareDelete deletes key only if its current value equals
	// expect, returning whether a delete happened.
	CompareDelete(key, expect string) (deleted bool, err error)
	// Set unconditionally stores value under key with ttl, used by
	// DeployLock to persist the unioned ptypes set.
	Set(key, value string, ttl time.Duration) error
	// Delete unconditionally removes key.
	Delete(key string) error
}

type entry struct {
	value   string
	expires time.Time
}

func (e entry) live(now time.Time) bool {
	return e.expires.IsZero() || e.expires.After(now)
}

// MemoryKV is an in-process KV backed by a mutex-guarded map, with a
// background sweeper to evict expired entries so long-lived processes
// don't accumulate stale keys.
type MemoryKV struct {
	mu      sync.Mutex
	entries map[string]entry
}

// NewMemoryKV constructs a MemoryKV and starts its expiry sweeper,
// which runs until stop() is called.
func NewMemoryKV(sweepInterval time.Duration) (*MemoryKV, func()) {
	kv := &MemoryKV{entries: make(map[string]entry)}
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	ticker := time.NewTicker(sweepInterval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				kv.sweep()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return kv, func() { close(done) }
}

func (k *MemoryKV) sweep() {
	now := time.Now()
	k.mu.Lock()
	defer k.mu.Unlock()
	for key, e := range k.entries {
		if !e.live(now) {
			delete(k.entries, key)
		}
	}
}

func (k *MemoryKV) SetNX(key, value string, ttl time.Duration) (string, error) {
	now := time.Now()
	k.mu.Lock()
	defer k.mu.Unlock()

	if e, ok := k.entries[key]; ok && e.live(now) {
		return e.value, nil
	}

	var expires time.Time
	if ttl > 0 {
		expires = now.Add(ttl)
	}
	k.entries[key] = entry{value: value, expires: expires}
	return value, nil
}

func (k *MemoryKV) Get(key string) (string, bool, error) {
	now := time.Now()
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.entries[key]
	if !ok || !e.live(now) {
		return "", false, nil
	}
	return e.value, true, nil
}

func (k *MemoryKV) Set(key, value string, ttl time.Duration) error {
	now := time.Now()
	k.mu.Lock()
	defer k.mu.Unlock()

	var expires time.Time
	if ttl > 0 {
		expires = now.Add(ttl)
	}
	k.entries[key] = entry{value: value, expires: expires}
	return nil
}

func (k *MemoryKV) CompareDelete(key, expect string) (bool, error) {
	now := time.Now()
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.entries[key]
	if !ok || !e.live(now) || e.value != expect {
		return false, nil
	}
	delete(k.entries, key)
	return true, nil
}

func (k *MemoryKV) Delete(key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.entries, key)
	return nil
}
