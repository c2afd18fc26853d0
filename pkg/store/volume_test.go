package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/store"
	"github.com/drycc/controller/pkg/store/memory"
)

// spec.md §8 "volume path uniqueness": two volumes on the same app
// cannot claim the same ptype->path mount, even though they are
// otherwise unrelated Volume rows.
func TestVolumeCreatePathUniqueness(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	require.NoError(t, s.Volumes.Create(ctx, &store.Volume{
		App: "app-1", Name: "data", Type: store.VolumeCSI,
		Path: map[string]string{"web": "/data"},
	}))

	err := s.Volumes.Create(ctx, &store.Volume{
		App: "app-1", Name: "other", Type: store.VolumeCSI,
		Path: map[string]string{"web": "/data"},
	})
	require.Error(t, err)
	assert.Equal(t, ctlerr.Drycc, ctlerr.KindOf(err))

	// a different ptype, or a different app, claiming the same path is fine.
	require.NoError(t, s.Volumes.Create(ctx, &store.Volume{
		App: "app-1", Name: "worker-data", Type: store.VolumeCSI,
		Path: map[string]string{"worker": "/data"},
	}))
	require.NoError(t, s.Volumes.Create(ctx, &store.Volume{
		App: "app-2", Name: "data", Type: store.VolumeCSI,
		Path: map[string]string{"web": "/data"},
	}))
}

// duplicate (App, Name) is rejected regardless of path.
func TestVolumeCreateDuplicateNameRejected(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.Volumes.Create(ctx, &store.Volume{App: "app-1", Name: "data", Path: map[string]string{"web": "/a"}}))
	err := s.Volumes.Create(ctx, &store.Volume{App: "app-1", Name: "data", Path: map[string]string{"web": "/b"}})
	require.Error(t, err)
	assert.Equal(t, ctlerr.AlreadyExists, ctlerr.KindOf(err))
}
