package k8s

import (
	"context"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// JobSpec describes a one-off run() invocation (spec.md §4.6 run).
type JobSpec struct {
	Name               string
	Namespace          string
	AppID, Ptype       string
	Image              string
	Command, Args      []string
	Env                []corev1.EnvVar
	EnvFromSecret      string
	NodeSelector       map[string]string
	Resources          corev1.ResourceRequirements
	ImagePullSecretName string
	ImagePullPolicy    corev1.PullPolicy
	Volumes            []corev1.Volume
	VolumeMounts       []corev1.VolumeMount
	ActiveDeadlineSeconds   *int64
	TTLSecondsAfterFinished *int32
	BackoffLimit       *int32
}

func (s JobSpec) toJob() *batchv1.Job {
	container := corev1.Container{
		Name:    "app",
		Image:   s.Image,
		Command: s.Command,
		Args:    s.Args,
		Env:     s.Env,
		Resources: s.Resources,
		VolumeMounts: s.VolumeMounts,
	}
	if s.EnvFromSecret != "" {
		container.EnvFrom = []corev1.EnvFromSource{{
			SecretRef: &corev1.SecretEnvSource{LocalObjectReference: corev1.LocalObjectReference{Name: s.EnvFromSecret}},
		}}
	}

	podSpec := corev1.PodSpec{
		Containers:    []corev1.Container{container},
		RestartPolicy: corev1.RestartPolicyNever,
		NodeSelector:  s.NodeSelector,
		Volumes:       s.Volumes,
	}
	if s.ImagePullSecretName != "" {
		podSpec.ImagePullSecrets = []corev1.LocalObjectReference{{Name: s.ImagePullSecretName}}
	}

	backoffLimit := s.BackoffLimit
	if backoffLimit == nil {
		var zero int32
		backoffLimit = &zero
	}

	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      s.Name,
			Namespace: s.Namespace,
			Labels:    map[string]string{"app": s.AppID, "type": s.Ptype, "heritage": "drycc"},
		},
		Spec: batchv1.JobSpec{
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: map[string]string{"app": s.AppID, "type": s.Ptype, "heritage": "drycc"},
				},
				Spec: podSpec,
			},
			BackoffLimit:            backoffLimit,
			ActiveDeadlineSeconds:   s.ActiveDeadlineSeconds,
			TTLSecondsAfterFinished: s.TTLSecondsAfterFinished,
		},
	}
}

// CreateJob submits a Job for a one-off run(); run() never retries an
// existing Job by name, so AlreadyExists is surfaced rather than
// swallowed.
func (c *Client) CreateJob(ctx context.Context, spec JobSpec) (*batchv1.Job, error) {
	job, err := c.clientset.BatchV1().Jobs(spec.Namespace).Create(ctx, spec.toJob(), metav1.CreateOptions{})
	if err != nil {
		return nil, classify(err)
	}
	return job, nil
}

// GetJob fetches a Job by name, or NotFound if absent.
func (c *Client) GetJob(ctx context.Context, namespace, name string) (*batchv1.Job, error) {
	j, err := c.clientset.BatchV1().Jobs(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, classify(err)
	}
	return j, nil
}

// JobComplete reports whether a Job finished, and whether it succeeded.
func JobComplete(job *batchv1.Job) (done, succeeded bool) {
	for _, cond := range job.Status.Conditions {
		if cond.Status != corev1.ConditionTrue {
			continue
		}
		switch cond.Type {
		case batchv1.JobComplete:
			return true, true
		case batchv1.JobFailed:
			return true, false
		}
	}
	return false, false
}

// DeleteJob deletes a Job, cascading to its Pods (run() cleanup).
func (c *Client) DeleteJob(ctx context.Context, namespace, name string) error {
	propagation := metav1.DeletePropagationForeground
	return classify(c.clientset.BatchV1().Jobs(namespace).Delete(ctx, name, metav1.DeleteOptions{
		PropagationPolicy: &propagation,
	}))
}
