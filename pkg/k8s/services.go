package k8s

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
)

// ServicePort mirrors store.ServicePort without importing pkg/store
// (k8s must stay a leaf package; store depends on nothing, but
// keeping them decoupled avoids an import cycle if that ever changes).
type ServicePort struct {
	Name       string
	Port       int32
	Protocol   corev1.Protocol
	TargetPort int32
}

// EnsureService creates the Service if missing, or otherwise updates
// the existing one's ports and selector to the desired values — used by the default-ingress
// bootstrap (spec.md §4.6) and general per-ptype Service management.
func (c *Client) EnsureService(ctx context.Context, namespace, name, appID, ptype string, ports []ServicePort) (*corev1.Service, error) {
	desired := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    map[string]string{"app": appID, "type": ptype, "heritage": "drycc"},
		},
		Spec: corev1.ServiceSpec{
			Selector: map[string]string{"app": appID, "type": ptype},
		},
	}
	for _, p := range ports {
		desired.Spec.Ports = append(desired.Spec.Ports, corev1.ServicePort{
			Name:       p.Name,
			Port:       p.Port,
			Protocol:   p.Protocol,
			TargetPort: intstr.FromInt32(p.TargetPort),
		})
	}

	existing, err := c.clientset.CoreV1().Services(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if !IsNotFound(classify(err)) {
			return nil, classify(err)
		}
		created, cerr := c.clientset.CoreV1().Services(namespace).Create(ctx, desired, metav1.CreateOptions{})
		if cerr != nil {
			return nil, classify(cerr)
		}
		return created, nil
	}

	existing.Spec.Ports = desired.Spec.Ports
	existing.Spec.Selector = desired.Spec.Selector
	updated, err := c.clientset.CoreV1().Services(namespace).Update(ctx, existing, metav1.UpdateOptions{})
	if err != nil {
		return nil, classify(err)
	}
	return updated, nil
}

// GetService fetches a Service, or NotFound if absent.
func (c *Client) GetService(ctx context.Context, namespace, name string) (*corev1.Service, error) {
	s, err := c.clientset.CoreV1().Services(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, classify(err)
	}
	return s, nil
}

// DeleteService deletes a Service by name.
func (c *Client) DeleteService(ctx context.Context, namespace, name string) error {
	return classify(c.clientset.CoreV1().Services(namespace).Delete(ctx, name, metav1.DeleteOptions{}))
}

