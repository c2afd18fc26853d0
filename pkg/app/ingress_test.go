package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	k8sfake "k8s.io/client-go/kubernetes/fake"

	"github.com/drycc/controller/pkg/k8s"
	"github.com/drycc/controller/pkg/lock"
	"github.com/drycc/controller/pkg/store/memory"
)

func newTestController(t *testing.T) *Controller {
	t.Helper()
	scheme := runtime.NewScheme()
	listKinds := map[schema.GroupVersionResource]string{
		{Group: "gateway.networking.k8s.io", Version: "v1", Resource: "gateways"}:   "GatewayList",
		{Group: "gateway.networking.k8s.io", Version: "v1", Resource: "httproutes"}: "HTTPRouteList",
	}
	dyn := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(scheme, listKinds)
	client := k8s.NewFromClients(k8sfake.NewSimpleClientset(), dyn, nil, nil)

	kv, stop := lock.NewMemoryKV(time.Minute)
	t.Cleanup(stop)

	return New(client, memory.New(), kv)
}

// spec.md §8 "ingress bootstrap idempotency": calling
// EnsureDefaultIngress twice must not error and must leave a single
// Service/Gateway/Route row behind, since EnsureService/EnsureGateway/
// EnsureHTTPRoute are themselves create-or-replace.
func TestEnsureDefaultIngressIdempotent(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t)
	const appID = "idempotency-test"

	require.NoError(t, c.EnsureDefaultIngress(ctx, appID, 8000))
	require.NoError(t, c.EnsureDefaultIngress(ctx, appID, 8000))

	svc, err := c.store.Services.Get(ctx, appID, "web")
	require.NoError(t, err)
	assert.Equal(t, appID, svc.App)
	require.Len(t, svc.Ports, 1)
	assert.Equal(t, int32(80), svc.Ports[0].Port)
	assert.Equal(t, int32(8000), svc.Ports[0].TargetPort)

	gw, err := c.store.Gateways.GetGateway(ctx, appID, appID)
	require.NoError(t, err)
	assert.Equal(t, appID, gw.Name)

	route, err := c.store.Gateways.GetRoute(ctx, appID, appID)
	require.NoError(t, err)
	require.Len(t, route.Rules, 1)
	assert.Equal(t, []string{appID + ":80"}, route.Rules[0].BackendRefs)

	list, err := c.store.Services.List(ctx, appID)
	require.NoError(t, err)
	assert.Len(t, list, 1, "a second EnsureDefaultIngress call must not duplicate the web service row")
}
