// Package deploy implements the Deploy Orchestrator: building per-ptype
// deploy plans, applying them to the cluster, and the supporting scale,
// mount, restart and clean operations (spec.md §4.5).
package deploy

import (
	"strconv"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/drycc/controller/pkg/release"
	"github.com/drycc/controller/pkg/store"
)

const (
	defaultDeployBatches        = int32(1)
	defaultDeployTimeoutSeconds = int32(1200)
	defaultRevisionHistoryLimit = int32(10)
	defaultTerminationGrace     = int64(30)
	defaultImagePullPolicy      = corev1.PullIfNotPresent
)

// Plan is the resolved per-ptype deploy plan _gather_app_settings
// produces — every key of spec.md §4.5's table, as a typed struct
// instead of an untyped dict.
type Plan struct {
	Ptype       string
	Replicas    int32
	Version     int
	AppType     string
	Image       string
	Command     []string
	Args        []string
	Env         map[string]string
	Routable    bool
	BuildType   string

	NodeSelector             map[string]string
	Resources                corev1.ResourceRequirements
	Annotations              map[string]string
	LivenessProbe            *corev1.Probe
	ReadinessProbe           *corev1.Probe
	RuntimeClassName         string
	DNSPolicy                corev1.DNSPolicy
	PostStart, PreStop       *corev1.LifecycleHandler
	DeployBatches            int32
	RestartPolicy            corev1.RestartPolicy
	DeployTimeoutSeconds      int32
	RevisionHistoryLimit      int32
	ReleaseSummary            string
	TerminationGracePeriod    int64
	ImagePullSecretName       string
	ImagePullPolicy           corev1.PullPolicy
	Volumes                  []corev1.Volume
	VolumeMounts             []corev1.VolumeMount
	PodSecurityContext       *corev1.PodSecurityContext
	ContainerSecurityContext *corev1.SecurityContext
}

// PlanInputs bundles everything _gather_app_settings reads to build a
// Plan for one ptype.
type PlanInputs struct {
	App         *store.App
	Build       *store.Build
	Config      *store.Config
	Release     *store.Release
	Settings    *store.AppSettings
	Ptype       string
	Replicas    int32
	LimitPlan   *store.LimitPlan
	Volumes     []store.Volume
	PullSecretName string
	RestartPolicy  corev1.RestartPolicy // "" means the normal Always default
}

// GatherAppSettings builds the per-ptype deploy plan from the current
// App/Build/Config/Release/AppSettings/LimitPlan state.
func GatherAppSettings(in PlanInputs) Plan {
	p := Plan{
		Ptype:         in.Ptype,
		Replicas:      in.Replicas,
		Version:       in.Release.Version,
		AppType:       in.Ptype,
		Image:         release.GetDeployImage(in.Build, in.Ptype),
		Command:       release.GetDeployCommand(in.Build, in.Ptype),
		Args:          release.GetDeployArgs(in.Build, in.Ptype),
		Env:           release.Env(in.App, in.Build, in.Config, in.Release, in.Ptype),
		Routable:      in.Ptype == "web" && in.Settings != nil && in.Settings.Routable,
		ReleaseSummary: in.Release.Summary,
		DeployBatches: envOrDefault32(in.Config, "DRYCC_DEPLOY_BATCHES", defaultDeployBatches),
		DeployTimeoutSeconds: envOrDefault32(in.Config, "DRYCC_DEPLOY_TIMEOUT", defaultDeployTimeoutSeconds),
		RevisionHistoryLimit: envOrDefault32(in.Config, "KUBERNETES_DEPLOYMENTS_REVISION_HISTORY_LIMIT", defaultRevisionHistoryLimit),
		ImagePullPolicy:      imagePullPolicyOrDefault(in.Config),
		ImagePullSecretName:  in.PullSecretName,
		RestartPolicy:        corev1.RestartPolicyAlways,
		TerminationGracePeriod: defaultTerminationGrace,
	}
	if in.Build != nil {
		p.BuildType = in.Build.Stack
	}
	if in.RestartPolicy != "" {
		p.RestartPolicy = in.RestartPolicy
	}

	if in.Config != nil {
		if ns, ok := in.Config.Tags[in.Ptype]; ok {
			p.NodeSelector = ns
		}
		if grace, ok := in.Config.TerminationGracePeriod[in.Ptype]; ok {
			p.TerminationGracePeriod = grace
		}
		if hook, ok := in.Config.LifecyclePostStart[in.Ptype]; ok && hook != "" {
			p.PostStart = &corev1.LifecycleHandler{Exec: &corev1.ExecAction{Command: []string{"/bin/sh", "-c", hook}}}
		}
		if hook, ok := in.Config.LifecyclePreStop[in.Ptype]; ok && hook != "" {
			p.PreStop = &corev1.LifecycleHandler{Exec: &corev1.ExecAction{Command: []string{"/bin/sh", "-c", hook}}}
		}
		if hc, ok := in.Config.Healthcheck[in.Ptype]; ok {
			p.LivenessProbe = toCoreProbe(hc.LivenessProbe)
			p.ReadinessProbe = toCoreProbe(hc.ReadinessProbe)
		}
	}

	if in.LimitPlan != nil {
		p.Resources = toResourceRequirements(*in.LimitPlan)
		p.Annotations = in.LimitPlan.Annotations
		p.RuntimeClassName = in.LimitPlan.RuntimeClassName
		p.NodeSelector = mergeStringMaps(in.LimitPlan.NodeSelector, p.NodeSelector)
		p.PodSecurityContext = toPodSecurityContext(in.LimitPlan.PodSecurityContext)
		p.ContainerSecurityContext = toContainerSecurityContext(in.LimitPlan.ContainerSecurityContext)
	}

	for _, v := range in.Volumes {
		path, ok := v.Path[in.Ptype]
		if !ok {
			continue
		}
		p.Volumes = append(p.Volumes, corev1.Volume{
			Name: v.Name,
			VolumeSource: corev1.VolumeSource{
				PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{ClaimName: v.Name},
			},
		})
		p.VolumeMounts = append(p.VolumeMounts, corev1.VolumeMount{Name: v.Name, MountPath: path})
	}

	return p
}

func envOrDefault32(cfg *store.Config, key string, def int32) int32 {
	if cfg == nil {
		return def
	}
	for _, v := range cfg.Values {
		if v.Name == key {
			if n, ok := atoi32(v.Value); ok {
				return n
			}
		}
	}
	return def
}

func atoi32(s string) (int32, bool) {
	var n int32
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int32(r-'0')
	}
	return n, true
}

func imagePullPolicyOrDefault(cfg *store.Config) corev1.PullPolicy {
	if cfg == nil {
		return defaultImagePullPolicy
	}
	for _, v := range cfg.Values {
		if v.Name == "IMAGE_PULL_POLICY" && v.Value != "" {
			return corev1.PullPolicy(v.Value)
		}
	}
	return defaultImagePullPolicy
}

func mergeStringMaps(base, override map[string]string) map[string]string {
	out := map[string]string{}
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func toResourceRequirements(plan store.LimitPlan) corev1.ResourceRequirements {
	return corev1.ResourceRequirements{
		Limits:   toResourceList(plan.Limits),
		Requests: toResourceList(plan.Requests),
	}
}

func toResourceList(m map[string]string) corev1.ResourceList {
	if len(m) == 0 {
		return nil
	}
	out := corev1.ResourceList{}
	for k, v := range m {
		out[corev1.ResourceName(k)] = resourceMustParse(v)
	}
	return out
}

func toCoreProbe(p *store.Probe) *corev1.Probe {
	if p == nil {
		return nil
	}
	out := &corev1.Probe{TimeoutSeconds: p.TimeoutSeconds}
	if p.HTTPGet != nil {
		out.ProbeHandler = corev1.ProbeHandler{
			HTTPGet: &corev1.HTTPGetAction{
				Path: p.HTTPGet.Path,
				Port: intstrFromInt32(p.HTTPGet.Port),
			},
		}
	}
	return out
}

// toPodSecurityContext projects a LimitPlan's flat pod_security_context
// map onto the recognized corev1.PodSecurityContext fields (spec.md
// §4.5 pod_security_context). Unrecognized keys are ignored; malformed
// values are dropped rather than failing the deploy.
func toPodSecurityContext(m map[string]string) *corev1.PodSecurityContext {
	if len(m) == 0 {
		return nil
	}
	return &corev1.PodSecurityContext{
		RunAsUser:    parseInt64Ptr(m["runAsUser"]),
		RunAsGroup:   parseInt64Ptr(m["runAsGroup"]),
		RunAsNonRoot: parseBoolPtr(m["runAsNonRoot"]),
		FSGroup:      parseInt64Ptr(m["fsGroup"]),
	}
}

// toContainerSecurityContext projects a LimitPlan's flat
// container_security_context map onto the recognized
// corev1.SecurityContext fields (spec.md §4.5
// container_security_context).
func toContainerSecurityContext(m map[string]string) *corev1.SecurityContext {
	if len(m) == 0 {
		return nil
	}
	return &corev1.SecurityContext{
		RunAsUser:                parseInt64Ptr(m["runAsUser"]),
		RunAsNonRoot:             parseBoolPtr(m["runAsNonRoot"]),
		ReadOnlyRootFilesystem:   parseBoolPtr(m["readOnlyRootFilesystem"]),
		AllowPrivilegeEscalation: parseBoolPtr(m["allowPrivilegeEscalation"]),
		Privileged:               parseBoolPtr(m["privileged"]),
	}
}

func parseBoolPtr(s string) *bool {
	if s == "" {
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil
	}
	return &b
}

func parseInt64Ptr(s string) *int64 {
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func resourceMustParse(s string) resource.Quantity {
	qty, err := resource.ParseQuantity(s)
	if err != nil {
		return resource.Quantity{}
	}
	return qty
}

func intstrFromInt32(p int32) intstr.IntOrString {
	return intstr.FromInt32(p)
}
