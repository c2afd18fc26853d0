package release

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drycc/controller/pkg/lock"
	"github.com/drycc/controller/pkg/store"
	"github.com/drycc/controller/pkg/store/memory"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	kv, stop := lock.NewMemoryKV(time.Minute)
	t.Cleanup(stop)
	return New(memory.New(), kv)
}

func seedApp(t *testing.T, e *Engine, ctx context.Context, appID string) *store.Build {
	t.Helper()
	require.NoError(t, e.store.Apps.Create(ctx, &store.App{ID: appID, Owner: "user"}))
	cfg := &store.Config{App: appID}
	require.NoError(t, e.store.Configs.Create(ctx, cfg))
	build := &store.Build{App: appID, Image: "registry/app", Sha: "sha1"}
	require.NoError(t, e.store.Builds.Create(ctx, build))
	return build
}

// spec.md §8 "version monotonicity": successive CreateFromBuild calls
// for the same app allocate strictly increasing version numbers
// starting at 1, regardless of interleaving with CreateFromConfig.
func TestVersionMonotonicity(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	build := seedApp(t, e, ctx, "monotonic-app")

	rel1, err := e.CreateFromBuild(ctx, "user", "monotonic-app", build)
	require.NoError(t, err)
	assert.Equal(t, 1, rel1.Version)

	cfg2 := &store.Config{App: "monotonic-app"}
	require.NoError(t, e.store.Configs.Create(ctx, cfg2))
	rel2, err := e.CreateFromConfig(ctx, "user", "monotonic-app", cfg2)
	require.NoError(t, err)
	assert.Equal(t, 2, rel2.Version)

	rel3, err := e.CreateFromBuild(ctx, "user", "monotonic-app", build)
	require.NoError(t, err)
	assert.Equal(t, 3, rel3.Version)
}

// spec.md §8 "rollback with no build fails": rolling back to a
// release with no build (config-only release) is rejected rather than
// producing a release with an empty image.
func TestRollbackToReleaseWithNoBuildFails(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	appID := "rollback-no-build-app"
	require.NoError(t, e.store.Apps.Create(ctx, &store.App{ID: appID, Owner: "user"}))
	cfg := &store.Config{App: appID}
	require.NoError(t, e.store.Configs.Create(ctx, cfg))

	// The first ever release of an app has no build: CreateFromConfig
	// finds no prior release to copy a build forward from.
	rel1, err := e.CreateFromConfig(ctx, "user", appID, cfg)
	require.NoError(t, err)
	assert.False(t, rel1.HasBuild())

	_, err = e.RollbackTo(ctx, "user", appID, rel1.Version)
	require.Error(t, err)
}

// RollbackTo against a release with a build allocates a new version
// carrying that build and config forward.
func TestRollbackToReleaseWithBuildSucceeds(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	build := seedApp(t, e, ctx, "rollback-app")

	rel1, err := e.CreateFromBuild(ctx, "user", "rollback-app", build)
	require.NoError(t, err)

	cfg2 := &store.Config{App: "rollback-app"}
	require.NoError(t, e.store.Configs.Create(ctx, cfg2))
	_, err = e.CreateFromConfig(ctx, "user", "rollback-app", cfg2)
	require.NoError(t, err)

	rolledBack, err := e.RollbackTo(ctx, "user", "rollback-app", rel1.Version)
	require.NoError(t, err)
	assert.Equal(t, 3, rolledBack.Version)
	assert.Equal(t, rel1.Build, rolledBack.Build)
	assert.Equal(t, rel1.Config, rolledBack.Config)
}
