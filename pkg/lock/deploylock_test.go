package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKV(t *testing.T) KV {
	t.Helper()
	kv, stop := NewMemoryKV(time.Minute)
	t.Cleanup(stop)
	return kv
}

// spec.md §4.2 lock exclusivity: two deploys that overlap on at least
// one ptype cannot both hold the lock, but disjoint ptype sets on the
// same app proceed concurrently.
func TestDeployLockExclusivity(t *testing.T) {
	ctx := context.Background()
	kv := newTestKV(t)
	d := NewDeployLock(kv, "app-1")

	require.NoError(t, d.Acquire(ctx, []string{"web"}, false))

	err := d.Acquire(ctx, []string{"web"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "web")

	require.NoError(t, d.Acquire(ctx, []string{"worker"}, false))

	held, err := d.Locked([]string{"web", "worker", "clock"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"web", "worker"}, held)

	require.NoError(t, d.Release([]string{"web"}))
	require.NoError(t, d.Acquire(ctx, []string{"web"}, false))

	require.NoError(t, d.Release([]string{"web", "worker"}))
	held, err = d.Locked([]string{"web", "worker"})
	require.NoError(t, err)
	assert.Empty(t, held)
}

// force bypasses the overlap check.
func TestDeployLockForceBypassesOverlap(t *testing.T) {
	ctx := context.Background()
	kv := newTestKV(t)
	d := NewDeployLock(kv, "app-2")

	require.NoError(t, d.Acquire(ctx, []string{"web"}, false))
	require.NoError(t, d.Acquire(ctx, []string{"web"}, true))
}
