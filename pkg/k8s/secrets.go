package k8s

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// EnsureSecret creates or updates (by full replace) a Secret of the
// given secretType.
// Used for both the env-projection Secret (spec.md §4.6
// set_application_config) and the registry pull Secret
// (spec.md §4.6 image_pull_secret), which differ only in Type/Data.
func (c *Client) EnsureSecret(ctx context.Context, namespace, name string, secretType corev1.SecretType, data map[string][]byte, labels map[string]string) (*corev1.Secret, error) {
	desired := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    labels,
		},
		Type: secretType,
		Data: data,
	}

	existing, err := c.clientset.CoreV1().Secrets(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if !IsNotFound(classify(err)) {
			return nil, classify(err)
		}
		created, cerr := c.clientset.CoreV1().Secrets(namespace).Create(ctx, desired, metav1.CreateOptions{})
		if cerr != nil {
			return nil, classify(cerr)
		}
		return created, nil
	}

	existing.Data = data
	existing.Type = secretType
	existing.Labels = labels
	updated, err := c.clientset.CoreV1().Secrets(namespace).Update(ctx, existing, metav1.UpdateOptions{})
	if err != nil {
		return nil, classify(err)
	}
	return updated, nil
}

// GetSecret fetches a Secret, or NotFound if absent.
func (c *Client) GetSecret(ctx context.Context, namespace, name string) (*corev1.Secret, error) {
	s, err := c.clientset.CoreV1().Secrets(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, classify(err)
	}
	return s, nil
}

// ListSecrets lists Secrets in namespace matching matchLabels, used by
// clean() to find per-release env Secrets whose `type` label fell out
// of the current structure.
func (c *Client) ListSecrets(ctx context.Context, namespace string, matchLabels map[string]string) ([]corev1.Secret, error) {
	sel := ""
	if len(matchLabels) > 0 {
		sel = metav1.FormatLabelSelector(&metav1.LabelSelector{MatchLabels: matchLabels})
	}
	list, err := c.clientset.CoreV1().Secrets(namespace).List(ctx, metav1.ListOptions{LabelSelector: sel})
	if err != nil {
		return nil, classify(err)
	}
	return list.Items, nil
}

// DeleteSecret deletes a Secret by name; missing is not an error for
// cleanup call sites, which check IsNotFound themselves.
func (c *Client) DeleteSecret(ctx context.Context, namespace, name string) error {
	return classify(c.clientset.CoreV1().Secrets(namespace).Delete(ctx, name, metav1.DeleteOptions{}))
}
