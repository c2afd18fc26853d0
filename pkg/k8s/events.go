package k8s

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
)

// EventSummary is the flattened shape the list_events projection
// (spec.md §4.10 describe/read-only projections) returns to callers,
// decoupled from corev1.Event's bulkier shape.
type EventSummary struct {
	Reason         string
	Message        string
	Type           string
	Count          int32
	LastTimestamp  metav1.Time
	InvolvedObject string
}

// ListEventsForObject lists Events tied to a specific object (a Pod,
// Deployment, Job, ...), in the order the API returns them, for the describe_pod
// and describe_app style read-only projections.
func (c *Client) ListEventsForObject(ctx context.Context, namespace, kind, name string) ([]EventSummary, error) {
	selector := fields.Set{
		"involvedObject.kind": kind,
		"involvedObject.name": name,
	}.AsSelector()

	list, err := c.clientset.CoreV1().Events(namespace).List(ctx, metav1.ListOptions{
		FieldSelector: selector.String(),
	})
	if err != nil {
		return nil, classify(err)
	}

	out := make([]EventSummary, 0, len(list.Items))
	for _, e := range list.Items {
		out = append(out, EventSummary{
			Reason:         e.Reason,
			Message:        e.Message,
			Type:           e.Type,
			Count:          e.Count,
			LastTimestamp:  e.LastTimestamp,
			InvolvedObject: fmt.Sprintf("%s/%s", e.InvolvedObject.Kind, e.InvolvedObject.Name),
		})
	}
	return out, nil
}

// ListEventsByLabels lists Events across all objects in a namespace
// whose involved object carries matchLabels, approximated here by
// listing Pods first and unioning their Events — the Events API has
// no native label selector over involvedObject.
func (c *Client) ListEventsByLabels(ctx context.Context, namespace string, matchLabels map[string]string) ([]EventSummary, error) {
	pods, err := c.ListPods(ctx, namespace, matchLabels)
	if err != nil {
		return nil, err
	}

	var out []EventSummary
	for _, p := range pods {
		evs, err := c.ListEventsForObject(ctx, namespace, "Pod", p.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, evs...)
	}
	return out, nil
}
