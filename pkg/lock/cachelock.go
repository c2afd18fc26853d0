package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CacheLock is a single-key advisory lock: acquire stores a unique
// owner token with a TTL via get-or-set, release only deletes the key
// if it still holds this owner's token (spec.md §4.2).
type CacheLock struct {
	kv    KV
	key   string
	token string
}

// NewCacheLock constructs a lock bound to key with a freshly minted
// owner token. A new CacheLock must be created per acquire attempt —
// it is not reusable across acquire/release cycles by design, since
// the token identifies one holder.
func NewCacheLock(kv KV, key string) *CacheLock {
	return &CacheLock{kv: kv, key: key, token: uuid.NewString()}
}

// Token returns the owner token this lock will try to install, mainly
// for tests asserting exclusivity.
func (l *CacheLock) Token() string {
	return l.token
}

// Acquire attempts to install this lock's token under its key with a
// TTL equal to timeout. If blocking, it retries every pollInterval
// until timeout elapses or ctx is cancelled. It returns true only if
// the stored value is this lock's own token — a concurrent acquire
// that won the race leaves this false.
func (l *CacheLock) Acquire(ctx context.Context, blocking bool, timeout time.Duration, pollInterval time.Duration) (bool, error) {
	if pollInterval <= 0 {
		pollInterval = 200 * time.Millisecond
	}
	deadline := time.Now().Add(timeout)

	for {
		stored, err := l.kv.SetNX(l.key, l.token, timeout)
		if err != nil {
			return false, err
		}
		if stored == l.token {
			return true, nil
		}
		if !blocking || time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Release deletes the lock's key only if it still carries this lock's
// token, so a stale caller (one whose TTL already expired and was
// reacquired by someone else) can never release another owner's lock.
func (l *CacheLock) Release() (bool, error) {
	return l.kv.CompareDelete(l.key, l.token)
}
