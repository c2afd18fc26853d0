package app

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"

	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/k8s"
	"github.com/drycc/controller/pkg/store"
)

// EnsureDefaultIngress ensures the web Service/Gateway/HTTPRoute
// bootstrap exists after the first web deploy: a Service on 80/TCP
// targeting webPort, a Gateway named after the app with a default
// HTTP listener, and an HTTPRoute with a single 100%-weighted
// backendRef to the Service (spec.md §4.6 default ingress).
//
// Calling this twice is idempotent by construction — EnsureService,
// EnsureGateway and EnsureHTTPRoute in pkg/k8s are themselves
// create-or-replace (spec.md §8 "ingress bootstrap idempotency").
func (c *Controller) EnsureDefaultIngress(ctx context.Context, appID string, webPort int32) error {
	svc, err := c.k8s.EnsureService(ctx, appID, appID, appID, "web", []k8s.ServicePort{
		{Name: "web", Port: 80, Protocol: corev1.ProtocolTCP, TargetPort: webPort},
	})
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "ensure default service", err)
	}

	gatewaySpec := map[string]interface{}{
		"gatewayClassName": "drycc",
		"listeners": []interface{}{
			map[string]interface{}{
				"name":     "http",
				"port":     int64(80),
				"protocol": "HTTP",
			},
		},
	}
	if _, err := c.k8s.EnsureGateway(ctx, appID, appID, map[string]string{"app": appID}, gatewaySpec); err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "ensure default gateway", err)
	}

	routeSpec := map[string]interface{}{
		"parentRefs": []interface{}{
			map[string]interface{}{"name": appID},
		},
		"rules": []interface{}{
			map[string]interface{}{
				"backendRefs": []interface{}{
					map[string]interface{}{"name": svc.Name, "port": int64(80), "weight": int64(100)},
				},
			},
		},
	}
	if _, err := c.k8s.EnsureHTTPRoute(ctx, appID, appID, map[string]string{"app": appID}, routeSpec); err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "ensure default route", err)
	}

	if err := c.store.Services.Upsert(ctx, &store.Service{
		App:   appID,
		Ptype: "web",
		Ports: []store.ServicePort{{Name: "web", Port: 80, Protocol: "TCP", TargetPort: webPort}},
	}); err != nil {
		return err
	}
	if err := c.store.Gateways.UpsertGateway(ctx, &store.Gateway{App: appID, Name: appID}); err != nil {
		return err
	}
	return c.store.Gateways.UpsertRoute(ctx, &store.Route{
		App:  appID,
		Name: appID,
		Rules: []store.RouteRule{{
			BackendRefs: []string{fmt.Sprintf("%s:80", svc.Name)},
			ParentRefs:  []string{appID},
		}},
	})
}
