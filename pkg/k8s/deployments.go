package k8s

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/types"
)

// DeploySpec is the Scheduler Client's view of the per-ptype deploy
// plan (spec.md §4.5's _gather_app_settings table). The Deploy
// Orchestrator builds one of these per ptype; the Scheduler Client
// only knows how to turn it into a Deployment object, never how the
// plan was derived.
type DeploySpec struct {
	Name                   string
	Namespace              string
	AppID                  string
	Ptype                  string
	Image                  string
	Command                []string
	Args                   []string
	Replicas               int32
	ReleaseVersion         int
	ReleaseSummary         string
	Env                    []corev1.EnvVar
	EnvFromSecret          string
	NodeSelector           map[string]string
	Tags                   map[string]string
	Resources              corev1.ResourceRequirements
	Annotations            map[string]string
	Labels                 map[string]string
	LivenessProbe          *corev1.Probe
	ReadinessProbe         *corev1.Probe
	RuntimeClassName       *string
	DNSPolicy              corev1.DNSPolicy
	PostStart              *corev1.LifecycleHandler
	PreStop                *corev1.LifecycleHandler
	RestartPolicy          corev1.RestartPolicy
	DeployBatches          int32
	DeployTimeoutSeconds   int32
	RevisionHistoryLimit   *int32
	TerminationGracePeriod *int64
	ImagePullSecretName    string
	ImagePullPolicy        corev1.PullPolicy
	Volumes                []corev1.Volume
	VolumeMounts           []corev1.VolumeMount
	PodSecurityContext     *corev1.PodSecurityContext
	ContainerSecurityContext *corev1.SecurityContext
}

func (s DeploySpec) labels() map[string]string {
	out := map[string]string{
		"app":              s.AppID,
		"type":             s.Ptype,
		"heritage":         "drycc",
		"drycc.cc/version": fmt.Sprintf("v%d", s.ReleaseVersion),
	}
	for k, v := range s.Labels {
		out[k] = v
	}
	return out
}

func (s DeploySpec) toDeployment() *appsv1.Deployment {
	container := corev1.Container{
		Name:            s.Ptype,
		Image:           s.Image,
		Command:         s.Command,
		Args:            s.Args,
		Env:             s.Env,
		Resources:       s.Resources,
		LivenessProbe:   s.LivenessProbe,
		ReadinessProbe:  s.ReadinessProbe,
		VolumeMounts:    s.VolumeMounts,
		SecurityContext: s.ContainerSecurityContext,
	}
	if s.EnvFromSecret != "" {
		container.EnvFrom = []corev1.EnvFromSource{
			{SecretRef: &corev1.SecretEnvSource{LocalObjectReference: corev1.LocalObjectReference{Name: s.EnvFromSecret}}},
		}
	}
	if s.PostStart != nil || s.PreStop != nil {
		container.Lifecycle = &corev1.Lifecycle{PostStart: s.PostStart, PreStop: s.PreStop}
	}

	var pullSecrets []corev1.LocalObjectReference
	if s.ImagePullSecretName != "" {
		pullSecrets = append(pullSecrets, corev1.LocalObjectReference{Name: s.ImagePullSecretName})
	}
	if s.ImagePullPolicy != "" {
		container.ImagePullPolicy = s.ImagePullPolicy
	}

	nodeSelector := map[string]string{}
	for k, v := range s.NodeSelector {
		nodeSelector[k] = v
	}
	for k, v := range s.Tags {
		nodeSelector[k] = v
	}

	replicas := s.Replicas
	restartPolicy := s.RestartPolicy
	if restartPolicy == "" {
		restartPolicy = corev1.RestartPolicyAlways
	}

	podLabels := s.labels()
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:        s.Name,
			Namespace:   s.Namespace,
			Labels:      podLabels,
			Annotations: s.Annotations,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas:             &replicas,
			RevisionHistoryLimit: s.RevisionHistoryLimit,
			Selector:             &metav1.LabelSelector{MatchLabels: map[string]string{"app": s.AppID, "type": s.Ptype}},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels:      podLabels,
					Annotations: s.Annotations,
				},
				Spec: corev1.PodSpec{
					Containers:                    []corev1.Container{container},
					RestartPolicy:                 restartPolicy,
					NodeSelector:                  nodeSelector,
					DNSPolicy:                      s.DNSPolicy,
					RuntimeClassName:               s.RuntimeClassName,
					TerminationGracePeriodSeconds:  s.TerminationGracePeriod,
					ImagePullSecrets:               pullSecrets,
					Volumes:                        s.Volumes,
					SecurityContext:                s.PodSecurityContext,
				},
			},
		},
	}
}

// GetDeployment fetches a Deployment, or NotFound if absent.
func (c *Client) GetDeployment(ctx context.Context, namespace, name string) (*appsv1.Deployment, error) {
	d, err := c.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, classify(err)
	}
	return d, nil
}

// ListDeployments lists Deployments in namespace matching the given labels.
func (c *Client) ListDeployments(ctx context.Context, namespace string, matchLabels map[string]string) ([]appsv1.Deployment, error) {
	list, err := c.clientset.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: labels.SelectorFromSet(matchLabels).String(),
	})
	if err != nil {
		return nil, classify(err)
	}
	return list.Items, nil
}

// DeployDeployment creates the Deployment if absent, or updates it in
// place (preserving resourceVersion) if present — the single "deploy"
// verb spec.md §4.1 specifies, covering both first deploy and rollout.
func (c *Client) DeployDeployment(ctx context.Context, spec DeploySpec) (*appsv1.Deployment, error) {
	desired := spec.toDeployment()
	existing, err := c.GetDeployment(ctx, spec.Namespace, spec.Name)
	if err != nil {
		if !IsNotFound(err) {
			return nil, err
		}
		created, cerr := c.clientset.AppsV1().Deployments(spec.Namespace).Create(ctx, desired, metav1.CreateOptions{})
		if cerr != nil {
			return nil, classify(cerr)
		}
		return created, nil
	}

	desired.ResourceVersion = existing.ResourceVersion
	// Preserve annotations a prior mount() may have added to the pod
	// template that this deploy plan doesn't know about.
	if existing.Spec.Template.Annotations != nil {
		merged := map[string]string{}
		for k, v := range existing.Spec.Template.Annotations {
			merged[k] = v
		}
		for k, v := range desired.Spec.Template.Annotations {
			merged[k] = v
		}
		desired.Spec.Template.Annotations = merged
	}
	updated, err := c.clientset.AppsV1().Deployments(spec.Namespace).Update(ctx, desired, metav1.UpdateOptions{})
	if err != nil {
		return nil, classify(err)
	}
	return updated, nil
}

// ScaleDeployment patches only .spec.replicas.
func (c *Client) ScaleDeployment(ctx context.Context, namespace, name string, replicas int32) error {
	patch := []byte(fmt.Sprintf(`{"spec":{"replicas":%d}}`, replicas))
	_, err := c.clientset.AppsV1().Deployments(namespace).Patch(ctx, name, types.MergePatchType, patch, metav1.PatchOptions{})
	return classify(err)
}

// PatchDeployment applies an arbitrary strategic-merge patch, used by
// mount() to rewrite volumes/volumeMounts while preserving everything
// else in the pod template.
func (c *Client) PatchDeployment(ctx context.Context, namespace, name string, patch []byte) (*appsv1.Deployment, error) {
	d, err := c.clientset.AppsV1().Deployments(namespace).Patch(ctx, name, types.StrategicMergePatchType, patch, metav1.PatchOptions{})
	if err != nil {
		return nil, classify(err)
	}
	return d, nil
}

// RestartDeployment triggers a rolling restart by stamping a
// restartedAt annotation on the pod template, the same mechanism
// `kubectl rollout restart` uses.
func (c *Client) RestartDeployment(ctx context.Context, namespace, name string) error {
	patch := map[string]any{
		"spec": map[string]any{
			"template": map[string]any{
				"metadata": map[string]any{
					"annotations": map[string]string{
						"drycc.cc/restartedAt": time.Now().UTC().Format(time.RFC3339),
					},
				},
			},
		},
	}
	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("marshal restart patch: %w", err)
	}
	_, err = c.clientset.AppsV1().Deployments(namespace).Patch(ctx, name, types.StrategicMergePatchType, data, metav1.PatchOptions{})
	return classify(err)
}

// DeleteDeployment deletes a Deployment by name.
func (c *Client) DeleteDeployment(ctx context.Context, namespace, name string) error {
	return classify(c.clientset.AppsV1().Deployments(namespace).Delete(ctx, name, metav1.DeleteOptions{}))
}

// InProgress reports whether a Deployment's rollout has not yet
// converged, and whether it is safe to start a new rollout (the two
// values spec.md §4.1 requires from `in_progress`).
//
// A rollout is "in progress" when observedGeneration lags generation,
// or any condition shows Progressing=False/Unknown, or the updated
// replica count has not yet reached the desired spec replica count.
// "ok to proceed" is the negation unless the Deployment is missing
// entirely, in which case there is nothing to conflict with.
func (c *Client) InProgress(ctx context.Context, namespace, name string, timeout time.Duration) (inProgress bool, okToProceed bool, err error) {
	d, err := c.GetDeployment(ctx, namespace, name)
	if err != nil {
		if IsNotFound(err) {
			return false, true, nil
		}
		return false, false, err
	}

	if d.Status.ObservedGeneration < d.Generation {
		return true, false, nil
	}
	for _, cond := range d.Status.Conditions {
		if cond.Type == appsv1.DeploymentProgressing {
			if cond.Status != corev1.ConditionTrue {
				return true, false, nil
			}
			if cond.Reason == "ProgressDeadlineExceeded" {
				return true, false, nil
			}
		}
	}
	desired := int32(0)
	if d.Spec.Replicas != nil {
		desired = *d.Spec.Replicas
	}
	if d.Status.UpdatedReplicas < desired || d.Status.AvailableReplicas < desired {
		return true, false, nil
	}
	return false, true, nil
}
