package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	k8sfake "k8s.io/client-go/kubernetes/fake"

	"github.com/drycc/controller/pkg/k8s"
	"github.com/drycc/controller/pkg/store"
)

// spec.md §8 "env idempotency": calling SetApplicationConfig twice
// for the same release/ptype must produce the same Secret name and
// must not error on the second call, since EnsureSecret is
// create-or-replace.
func TestSetApplicationConfigIdempotent(t *testing.T) {
	ctx := context.Background()
	client := k8s.NewFromClients(k8sfake.NewSimpleClientset(), nil, nil, nil)
	c := New(client, nil, nil)

	app := &store.App{ID: "idempotency-test"}
	build := &store.Build{ID: "build-1", App: app.ID, Sha: "abc123"}
	cfg := &store.Config{
		ID:  "config-1",
		App: app.ID,
		Values: []store.EnvValue{
			{Name: "GLOBAL_VAR", Value: "1", Group: "global"},
			{Name: "WEB_ONLY", Value: "2", Group: "web"},
		},
	}
	rel := &store.Release{ID: "release-1", App: app.ID, Version: 3, Created: time.Now()}

	name1, err := c.SetApplicationConfig(ctx, app, build, cfg, rel, "web")
	require.NoError(t, err)

	name2, err := c.SetApplicationConfig(ctx, app, build, cfg, rel, "web")
	require.NoError(t, err)

	assert.Equal(t, name1, name2)
	assert.Equal(t, "idempotency-test-web-v3-env", name1)

	secret, err := client.GetSecret(ctx, app.ID, name1)
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), secret.Data["global-var"])
	assert.Equal(t, []byte("2"), secret.Data["web-only"])
}
