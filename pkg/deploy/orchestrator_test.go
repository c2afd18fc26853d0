package deploy

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8sfake "k8s.io/client-go/kubernetes/fake"

	"github.com/drycc/controller/pkg/app"
	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/k8s"
	"github.com/drycc/controller/pkg/lock"
	"github.com/drycc/controller/pkg/release"
	"github.com/drycc/controller/pkg/store"
	"github.com/drycc/controller/pkg/store/memory"
)

// stubHTTPClient always answers 200, so verifyHealth returns on its
// first attempt instead of exhausting its retry budget.
type stubHTTPClient struct{}

func (stubHTTPClient) Get(string) (*http.Response, error) {
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(nil))}, nil
}

type stubConn struct{ net.Conn }

func (stubConn) Close() error { return nil }

type stubDialer struct{}

func (stubDialer) DialTimeout(string, string, time.Duration) (net.Conn, error) {
	return stubConn{}, nil
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *k8sfake.Clientset) {
	t.Helper()
	clientset := k8sfake.NewSimpleClientset()
	client := k8s.NewFromClients(clientset, nil, nil, nil)
	s := memory.New()
	kv, stop := lock.NewMemoryKV(time.Minute)
	t.Cleanup(stop)

	o := New(client, s, release.New(s, kv), kv, 4)
	o.SetAppController(app.New(client, s, kv))
	o.HTTP = stubHTTPClient{}
	o.Dial = stubDialer{}
	return o, clientset
}

func seedDeployableApp(t *testing.T, ctx context.Context, o *Orchestrator, appID string, structure map[string]int32, procfile map[string]string) (*store.App, *store.Release) {
	t.Helper()
	app := &store.App{ID: appID, Owner: "user", Structure: structure}
	require.NoError(t, o.store.Apps.Create(ctx, app))
	require.NoError(t, o.store.AppSettings.Create(ctx, &store.AppSettings{App: appID}))
	cfg := &store.Config{App: appID}
	require.NoError(t, o.store.Configs.Create(ctx, cfg))
	build := &store.Build{App: appID, Image: "registry/app", Procfile: procfile}
	require.NoError(t, o.store.Builds.Create(ctx, build))
	rel, err := o.releases.CreateFromBuild(ctx, "user", appID, build)
	require.NoError(t, err)
	return app, rel
}

// spec.md §8 "no deploy when no build": a release with no build
// cannot be deployed, regardless of app.Structure.
func TestDeployNoBuildFails(t *testing.T) {
	ctx := context.Background()
	o, _ := newTestOrchestrator(t)

	app := &store.App{ID: "no-build-app", Owner: "user", Structure: map[string]int32{"web": 1}}
	require.NoError(t, o.store.Apps.Create(ctx, app))
	cfg := &store.Config{App: app.ID}
	require.NoError(t, o.store.Configs.Create(ctx, cfg))
	rel, err := o.releases.CreateFromConfig(ctx, "user", app.ID, cfg)
	require.NoError(t, err)
	require.False(t, rel.HasBuild())

	err = o.Deploy(ctx, app, rel, nil, false, false)
	require.Error(t, err)
	assert.Equal(t, ctlerr.Drycc, ctlerr.KindOf(err))
}

// spec.md §8 "structure/release ptypes consistency": deploying with
// no explicit ptype list only touches ptypes the release's build
// declares, even when app.Structure carries an extra ptype the build
// no longer declares.
func TestDeployOnlyTouchesBuildDeclaredPtypes(t *testing.T) {
	ctx := context.Background()
	o, clientset := newTestOrchestrator(t)

	app, rel := seedDeployableApp(t, ctx, o, "ptypes-app",
		map[string]int32{"web": 1, "worker": 1, "orphan": 1},
		map[string]string{"web": "gunicorn app:app", "worker": "celery worker"},
	)

	require.NoError(t, o.Deploy(ctx, app, rel, nil, false, false))

	_, err := clientset.AppsV1().Deployments(app.ID).Get(ctx, "ptypes-app-web", metav1.GetOptions{})
	assert.NoError(t, err)
	_, err = clientset.AppsV1().Deployments(app.ID).Get(ctx, "ptypes-app-worker", metav1.GetOptions{})
	assert.NoError(t, err)
	_, err = clientset.AppsV1().Deployments(app.ID).Get(ctx, "ptypes-app-orphan", metav1.GetOptions{})
	assert.Error(t, err, "orphan ptype is not declared by the build and must not be deployed")
}

// spec.md §8 "scale rollback": when applying a scale fails partway
// through, the app's persisted Structure is left untouched rather
// than partially advanced.
func TestScaleRollbackLeavesStructureUnchanged(t *testing.T) {
	ctx := context.Background()
	o, _ := newTestOrchestrator(t)

	app, _ := seedDeployableApp(t, ctx, o, "scale-app",
		map[string]int32{"web": 1},
		map[string]string{"web": "gunicorn app:app"},
	)
	// No Deployment was created for "web" in the cluster, so
	// ScaleDeployment's patch call fails with NotFound.
	_, err := o.Scale(ctx, app, "user", map[string]int32{"web": 3})
	require.Error(t, err)
	assert.Equal(t, ctlerr.ServiceUnavailable, ctlerr.KindOf(err))

	stored, gerr := o.store.Apps.Get(ctx, app.ID)
	require.NoError(t, gerr)
	assert.Equal(t, int32(1), stored.Structure["web"])
}
