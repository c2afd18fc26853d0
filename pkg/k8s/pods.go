package k8s

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/watch"
)

// PodState is the lazily-produced value the Pod watch stream emits,
// terminating in StateDown per spec.md §9's watch-iterator design
// note (a finite, non-restartable stream with an explicit cancel).
type PodState string

const (
	StatePending PodState = "pending"
	StateRunning PodState = "running"
	StateDown    PodState = "down"
	StateError   PodState = "error"
)

// GetPod fetches a Pod by name, or NotFound if absent.
func (c *Client) GetPod(ctx context.Context, namespace, name string) (*corev1.Pod, error) {
	p, err := c.clientset.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, classify(err)
	}
	return p, nil
}

// ListPods lists Pods in namespace matching matchLabels.
func (c *Client) ListPods(ctx context.Context, namespace string, matchLabels map[string]string) ([]corev1.Pod, error) {
	list, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: labels.SelectorFromSet(matchLabels).String(),
	})
	if err != nil {
		return nil, classify(err)
	}
	return list.Items, nil
}

// DeletePod deletes a single Pod; its owning Deployment (if any) will
// replace it.
func (c *Client) DeletePod(ctx context.Context, namespace, name string) error {
	return classify(c.clientset.CoreV1().Pods(namespace).Delete(ctx, name, metav1.DeleteOptions{}))
}

// WatchPods returns a channel of PodState and a cancel func. The
// channel always terminates — either the watch observes the first
// matching pod be deleted or reach Succeeded/Failed (emits StateDown
// and closes), the context is cancelled or the watch stream ends
// (closes without a final state), or an event carries something other
// than a Pod (emits StateError and closes).
//
// This bounds the pipeline job wait of spec.md §4.5 to a finite,
// explicitly cancellable stream, per the Design Note on the watch
// iterator.
func (c *Client) WatchPods(ctx context.Context, namespace string, matchLabels map[string]string) (<-chan PodState, func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	w, err := c.clientset.CoreV1().Pods(namespace).Watch(ctx, metav1.ListOptions{
		LabelSelector: labels.SelectorFromSet(matchLabels).String(),
	})
	if err != nil {
		cancel()
		return nil, func() {}, classify(err)
	}

	out := make(chan PodState, 1)
	go func() {
		defer close(out)
		defer w.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.ResultChan():
				if !ok {
					return
				}
				state, terminal := classifyPodEvent(event)
				select {
				case out <- state:
				case <-ctx.Done():
					return
				}
				if terminal {
					return
				}
			}
		}
	}()

	return out, cancel, nil
}

func classifyPodEvent(event watch.Event) (state PodState, terminal bool) {
	if event.Type == watch.Deleted {
		return StateDown, true
	}
	pod, ok := event.Object.(*corev1.Pod)
	if !ok {
		return StateError, true
	}
	switch pod.Status.Phase {
	case corev1.PodSucceeded, corev1.PodFailed:
		return StateDown, true
	case corev1.PodRunning:
		return StateRunning, false
	case corev1.PodPending:
		return StatePending, false
	default:
		return StatePending, false
	}
}

// PodLogs fetches (non-streaming) logs for a pod/container.
func (c *Client) PodLogs(ctx context.Context, namespace, name, container string, tailLines int64) (string, error) {
	req := c.clientset.CoreV1().Pods(namespace).GetLogs(name, &corev1.PodLogOptions{
		Container: container,
		TailLines: &tailLines,
	})
	data, err := req.DoRaw(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch pod logs: %w", classify(err))
	}
	return string(data), nil
}
