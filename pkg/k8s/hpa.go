package k8s

import (
	"context"

	autoscalingv2 "k8s.io/api/autoscaling/v2"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// EnsureHPA creates or updates a HorizontalPodAutoscaler targeting the
// named Deployment. spec==nil is handled by the caller (App Lifecycle
// Controller) calling DeleteHPA instead — the Scheduler Client itself
// is not responsible for that branch (spec.md §4.6 autoscale).
func (c *Client) EnsureHPA(ctx context.Context, namespace, name, targetDeployment string, spec autoscalingv2.HorizontalPodAutoscalerSpec) (*autoscalingv2.HorizontalPodAutoscaler, error) {
	spec.ScaleTargetRef = autoscalingv2.CrossVersionObjectReference{
		Kind:       "Deployment",
		Name:       targetDeployment,
		APIVersion: "apps/v1",
	}

	existing, err := c.clientset.AutoscalingV2().HorizontalPodAutoscalers(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if !IsNotFound(classify(err)) {
			return nil, classify(err)
		}
		hpa := &autoscalingv2.HorizontalPodAutoscaler{
			ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
			Spec:       spec,
		}
		created, cerr := c.clientset.AutoscalingV2().HorizontalPodAutoscalers(namespace).Create(ctx, hpa, metav1.CreateOptions{})
		if cerr != nil {
			return nil, classify(cerr)
		}
		return created, nil
	}

	existing.Spec = spec
	updated, err := c.clientset.AutoscalingV2().HorizontalPodAutoscalers(namespace).Update(ctx, existing, metav1.UpdateOptions{})
	if err != nil {
		return nil, classify(err)
	}
	return updated, nil
}

// DeleteHPA deletes a HorizontalPodAutoscaler by name; missing is not
// treated as an error since autoscale(nil) is idempotent by spec.
func (c *Client) DeleteHPA(ctx context.Context, namespace, name string) error {
	err := classify(c.clientset.AutoscalingV2().HorizontalPodAutoscalers(namespace).Delete(ctx, name, metav1.DeleteOptions{}))
	if IsNotFound(err) {
		return nil
	}
	return err
}
