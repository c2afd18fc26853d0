package k8s

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// GetNamespace returns the named namespace, or a NotFound error if it
// does not exist. GET-before-create call sites are expected to handle
// that NotFound themselves (spec.md §7 propagation policy).
func (c *Client) GetNamespace(ctx context.Context, name string) (*corev1.Namespace, error) {
	ns, err := c.clientset.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, classify(err)
	}
	return ns, nil
}

// CreateNamespace creates a namespace with the given labels.
func (c *Client) CreateNamespace(ctx context.Context, name string, labels map[string]string) (*corev1.Namespace, error) {
	ns := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name:   name,
			Labels: labels,
		},
	}
	created, err := c.clientset.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{})
	if err != nil {
		return nil, classify(err)
	}
	return created, nil
}

// DeleteNamespace deletes the named namespace. Missing namespace is a
// mutating NotFound, which per spec.md §7 is fatal unless the caller
// explicitly ignores it — App.delete does exactly that (missing
// namespace is treated as already-deleted).
func (c *Client) DeleteNamespace(ctx context.Context, name string) error {
	err := c.clientset.CoreV1().Namespaces().Delete(ctx, name, metav1.DeleteOptions{})
	return classify(err)
}
