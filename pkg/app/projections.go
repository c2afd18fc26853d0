package app

import (
	"context"

	corev1 "k8s.io/api/core/v1"

	"github.com/drycc/controller/pkg/k8s"
)

// DescribePod projects a Pod plus its recent Events for the describe
// surface (spec.md §4.6 describe_pod).
func (c *Controller) DescribePod(ctx context.Context, appID, name string) (*corev1.Pod, []k8s.EventSummary, error) {
	pod, err := c.k8s.GetPod(ctx, appID, name)
	if err != nil {
		return nil, nil, err
	}
	events, err := c.k8s.ListEventsForObject(ctx, appID, "Pod", name)
	if err != nil {
		return nil, nil, err
	}
	return pod, events, nil
}

// ListPods projects every Pod for the given ptype (or every ptype when
// ptype=="").
func (c *Controller) ListPods(ctx context.Context, appID, ptype string) ([]corev1.Pod, error) {
	labels := map[string]string{"app": appID}
	if ptype != "" {
		labels["type"] = ptype
	}
	return c.k8s.ListPods(ctx, appID, labels)
}

// DescribeDeployment projects a ptype's Deployment plus its recent
// Events.
func (c *Controller) DescribeDeployment(ctx context.Context, appID, ptype string) (interface{}, []k8s.EventSummary, error) {
	name := appDeploymentName(appID, ptype)
	dep, err := c.k8s.GetDeployment(ctx, appID, name)
	if err != nil {
		return nil, nil, err
	}
	events, err := c.k8s.ListEventsForObject(ctx, appID, "Deployment", name)
	if err != nil {
		return nil, nil, err
	}
	return dep, events, nil
}

// ListDeployments projects every Deployment for the app.
func (c *Controller) ListDeployments(ctx context.Context, appID string) (interface{}, error) {
	return c.k8s.ListDeployments(ctx, appID, map[string]string{"app": appID})
}

// ListEvents projects every Event attached to pods matching the app
// (and optional ptype).
func (c *Controller) ListEvents(ctx context.Context, appID, ptype string) ([]k8s.EventSummary, error) {
	labels := map[string]string{"app": appID}
	if ptype != "" {
		labels["type"] = ptype
	}
	return c.k8s.ListEventsByLabels(ctx, appID, labels)
}
