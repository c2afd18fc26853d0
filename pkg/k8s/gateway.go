package k8s

import (
	"context"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// Gateway API has no typed clientset in client-go; this package talks
// to it through the dynamic client the same way the upstream CRD
// access pattern does, keyed off a small GVR map instead of a
// generated clientset (spec.md §4.6 Gateway/Route management).
var (
	gatewayGVR = schema.GroupVersionResource{Group: "gateway.networking.k8s.io", Version: "v1", Resource: "gateways"}
	httpRouteGVR = schema.GroupVersionResource{Group: "gateway.networking.k8s.io", Version: "v1", Resource: "httproutes"}
)

// EnsureGateway creates the Gateway object if absent, else replaces
// its spec. spec is the raw `spec` stanza as a map, since apimachinery
// ships no typed Gateway struct for client-go.
func (c *Client) EnsureGateway(ctx context.Context, namespace, name string, labels map[string]string, spec map[string]interface{}) (*unstructured.Unstructured, error) {
	res := c.dynamic.Resource(gatewayGVR).Namespace(namespace)

	existing, err := res.Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if !apierrors.IsNotFound(err) {
			return nil, classify(err)
		}
		obj := &unstructured.Unstructured{Object: map[string]interface{}{
			"apiVersion": "gateway.networking.k8s.io/v1",
			"kind":       "Gateway",
			"metadata": map[string]interface{}{
				"name":      name,
				"namespace": namespace,
				"labels":    toInterfaceMap(labels),
			},
			"spec": spec,
		}}
		created, cerr := res.Create(ctx, obj, metav1.CreateOptions{})
		if cerr != nil {
			return nil, classify(cerr)
		}
		return created, nil
	}

	existing.Object["spec"] = spec
	updated, err := res.Update(ctx, existing, metav1.UpdateOptions{})
	if err != nil {
		return nil, classify(err)
	}
	return updated, nil
}

// GetGateway fetches a Gateway by name, or NotFound if absent.
func (c *Client) GetGateway(ctx context.Context, namespace, name string) (*unstructured.Unstructured, error) {
	obj, err := c.dynamic.Resource(gatewayGVR).Namespace(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, classify(err)
	}
	return obj, nil
}

// DeleteGateway deletes a Gateway by name.
func (c *Client) DeleteGateway(ctx context.Context, namespace, name string) error {
	return classify(c.dynamic.Resource(gatewayGVR).Namespace(namespace).Delete(ctx, name, metav1.DeleteOptions{}))
}

// EnsureHTTPRoute creates or replaces an HTTPRoute's spec, mirroring
// EnsureGateway's create-or-replace shape.
func (c *Client) EnsureHTTPRoute(ctx context.Context, namespace, name string, labels map[string]string, spec map[string]interface{}) (*unstructured.Unstructured, error) {
	res := c.dynamic.Resource(httpRouteGVR).Namespace(namespace)

	existing, err := res.Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if !apierrors.IsNotFound(err) {
			return nil, classify(err)
		}
		obj := &unstructured.Unstructured{Object: map[string]interface{}{
			"apiVersion": "gateway.networking.k8s.io/v1",
			"kind":       "HTTPRoute",
			"metadata": map[string]interface{}{
				"name":      name,
				"namespace": namespace,
				"labels":    toInterfaceMap(labels),
			},
			"spec": spec,
		}}
		created, cerr := res.Create(ctx, obj, metav1.CreateOptions{})
		if cerr != nil {
			return nil, classify(cerr)
		}
		return created, nil
	}

	existing.Object["spec"] = spec
	updated, err := res.Update(ctx, existing, metav1.UpdateOptions{})
	if err != nil {
		return nil, classify(err)
	}
	return updated, nil
}

// DeleteHTTPRoute deletes an HTTPRoute by name.
func (c *Client) DeleteHTTPRoute(ctx context.Context, namespace, name string) error {
	return classify(c.dynamic.Resource(httpRouteGVR).Namespace(namespace).Delete(ctx, name, metav1.DeleteOptions{}))
}

func toInterfaceMap(m map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
