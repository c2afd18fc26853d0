// Package store defines the Entity Store's domain types and the
// storage interfaces pkg/release, pkg/deploy, pkg/app and pkg/workers
// build on (spec.md §3).
package store

import "time"

// EnvValue is one entry of a Config's ordered `values` list.
type EnvValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Group string `json:"group"` // "global" or a ptype name
}

// RegistryAuth is one entry of Config.registry, keyed by ptype.
type RegistryAuth struct {
	Hostname string `json:"hostname,omitempty"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Healthcheck is one entry of Config.healthcheck, keyed by ptype.
type Healthcheck struct {
	LivenessProbe  *Probe `json:"livenessProbe,omitempty"`
	ReadinessProbe *Probe `json:"readinessProbe,omitempty"`
}

// Probe is a minimal httpGet/tcpSocket probe description, independent
// of corev1 so the store package stays dependency-free.
type Probe struct {
	HTTPGet   *HTTPGetAction `json:"httpGet,omitempty"`
	TCPSocket bool           `json:"tcpSocket,omitempty"`
	TimeoutSeconds int32     `json:"timeoutSeconds,omitempty"`
}

// HTTPGetAction is the path/port an httpGet probe targets.
type HTTPGetAction struct {
	Path string `json:"path"`
	Port int32  `json:"port"`
}

// App is the top-level tenant entity.
type App struct {
	ID        string           `json:"id" db:"id"`
	Owner     string           `json:"owner" db:"owner"`
	Structure map[string]int32 `json:"structure" db:"structure"`
	Created   time.Time        `json:"created" db:"created"`
	Updated   time.Time        `json:"updated" db:"updated"`
}

// Config is an append-only versioned record per App; only the latest
// is read, but history is kept for audit and for Release.Config refs.
type Config struct {
	ID                     string                  `json:"id" db:"id"`
	App                    string                  `json:"app" db:"app"`
	Values                 []EnvValue              `json:"values" db:"values"`
	Limits                 map[string]string       `json:"limits" db:"limits"` // ptype -> LimitPlan id
	Registry               map[string]RegistryAuth `json:"registry" db:"registry"`
	Healthcheck            map[string]Healthcheck  `json:"healthcheck" db:"healthcheck"`
	Tags                   map[string]map[string]string `json:"tags" db:"tags"`
	LifecyclePostStart     map[string]string       `json:"lifecycle_post_start" db:"lifecycle_post_start"`
	LifecyclePreStop       map[string]string       `json:"lifecycle_pre_stop" db:"lifecycle_pre_stop"`
	TerminationGracePeriod map[string]int64        `json:"termination_grace_period" db:"termination_grace_period"`
	Created                time.Time               `json:"created" db:"created"`
}

// PipelineStep is one dryccfile.pipeline[ptype] entry.
type PipelineStep struct {
	Build  string        `json:"build,omitempty"`
	Run    *RunStep      `json:"run,omitempty"`
	Deploy DeployStep    `json:"deploy"`
}

// RunStep is a build-declared pre-deploy job runner.
type RunStep struct {
	Image   string   `json:"image"`
	Command []string `json:"command"`
	Args    []string `json:"args"`
	Timeout int32    `json:"timeout"`
}

// DeployStep is a build-declared per-ptype deploy target.
type DeployStep struct {
	Image   string   `json:"image"`
	Command []string `json:"command"`
	Args    []string `json:"args"`
}

// Build is an immutable image reference plus pipeline metadata.
type Build struct {
	ID        string                  `json:"id" db:"id"`
	App       string                  `json:"app" db:"app"`
	Image     string                  `json:"image" db:"image"`
	Stack     string                  `json:"stack" db:"stack"`
	Sha       string                  `json:"sha" db:"sha"`
	Procfile  map[string]string       `json:"procfile" db:"procfile"`
	Dryccfile map[string]PipelineStep `json:"dryccfile" db:"dryccfile"`
	Created   time.Time               `json:"created" db:"created"`
}

// ReleaseState is the Release lifecycle state.
type ReleaseState string

const (
	ReleaseCreated ReleaseState = "created"
	ReleaseSucceed ReleaseState = "succeed"
	ReleaseCrashed ReleaseState = "crashed"
)

// Condition is one append-only entry of Release.conditions.
type Condition struct {
	State     ReleaseState `json:"state"`
	Action    string       `json:"action"`
	Ptypes    []string     `json:"ptypes"`
	Exception string       `json:"exception,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Release is an immutable (except state/failed/conditions), strictly
// versioned join of a Config and an optional Build.
type Release struct {
	ID             string       `json:"id" db:"id"`
	App            string       `json:"app" db:"app"`
	Version        int          `json:"version" db:"version"`
	Config         string       `json:"config" db:"config"` // Config.ID
	Build          string       `json:"build" db:"build"`   // Build.ID, "" means null
	State          ReleaseState `json:"state" db:"state"`
	Failed         bool         `json:"failed" db:"failed"`
	DeployedPtypes []string     `json:"deployed_ptypes" db:"deployed_ptypes"`
	Conditions     []Condition  `json:"conditions" db:"conditions"`
	Summary        string       `json:"summary" db:"summary"`
	Created        time.Time    `json:"created" db:"created"`
	Updated        time.Time    `json:"updated" db:"updated"`
}

// HasBuild reports whether this release references a Build.
func (r Release) HasBuild() bool { return r.Build != "" }

// AutoscaleSpec is one ptype's HPA configuration.
type AutoscaleSpec struct {
	MinReplicas int32 `json:"min_replicas"`
	MaxReplicas int32 `json:"max_replicas"`
	CPUPercent  int32 `json:"cpu_percent"`
}

// AppSettings is a latest-wins versioned record. Every save is stored
// as a new version; a save identical to the previous one is not
// rejected.
type AppSettings struct {
	ID           string                   `json:"id" db:"id"`
	App          string                   `json:"app" db:"app"`
	Routable     bool                     `json:"routable" db:"routable"`
	Autoscale    map[string]AutoscaleSpec `json:"autoscale" db:"autoscale"`
	Label        map[string]string        `json:"label" db:"label"`
	Autodeploy   bool                     `json:"autodeploy" db:"autodeploy"`
	Autorollback bool                     `json:"autorollback" db:"autorollback"`
	Created      time.Time                `json:"created" db:"created"`
}

// ServicePort is one entry of a Service's ordered `ports` list.
type ServicePort struct {
	Name       string `json:"name"`
	Port       int32  `json:"port"`
	Protocol   string `json:"protocol"`
	TargetPort int32  `json:"targetPort"`
}

// Service is per (App, ptype).
type Service struct {
	ID     string        `json:"id" db:"id"`
	App    string        `json:"app" db:"app"`
	Ptype  string        `json:"ptype" db:"ptype"`
	Ports  []ServicePort `json:"ports" db:"ports"`
	Canary bool          `json:"canary" db:"canary"`
}

// RouteRule is one entry of Route.rules.
type RouteRule struct {
	BackendRefs []string `json:"backend_refs"`
	ParentRefs  []string `json:"parent_refs"`
}

// Gateway is a declarative HTTP(S)/TCP routing front door.
type Gateway struct {
	ID   string `json:"id" db:"id"`
	App  string `json:"app" db:"app"`
	Name string `json:"name" db:"name"`
}

// Route attaches rules to a Gateway.
type Route struct {
	ID      string      `json:"id" db:"id"`
	App     string      `json:"app" db:"app"`
	Name    string      `json:"name" db:"name"`
	Rules   []RouteRule `json:"rules" db:"rules"`
	TLSRefs []string    `json:"tls_refs" db:"tls_refs"`
}

// Domain is a hostname owned by an App.
type Domain struct {
	ID  string `json:"id" db:"id"`
	App string `json:"app" db:"app"`
	Domain string `json:"domain" db:"domain"`
}

// TLS is per-App default-certificate configuration.
type TLS struct {
	ID              string `json:"id" db:"id"`
	App             string `json:"app" db:"app"`
	HTTPSEnforced   bool   `json:"https_enforced" db:"https_enforced"`
	CertificateName string `json:"certificate_name" db:"certificate_name"`
}

// Certificate attaches to Domains.
type Certificate struct {
	ID      string   `json:"id" db:"id"`
	Name    string   `json:"name" db:"name"`
	Domains []string `json:"domains" db:"domains"`
	Cert    string   `json:"certificate" db:"certificate"`
	Key     string   `json:"key" db:"key"`
}

// VolumeType enumerates the backing storage class family.
type VolumeType string

const (
	VolumeCSI VolumeType = "csi"
	VolumeNFS VolumeType = "nfs"
	VolumeOSS VolumeType = "oss"
)

// Volume is per (App, name).
type Volume struct {
	ID   string            `json:"id" db:"id"`
	App  string            `json:"app" db:"app"`
	Name string            `json:"name" db:"name"`
	Type VolumeType        `json:"type" db:"type"`
	Size string            `json:"size" db:"size"` // e.g. "10G"
	Path map[string]string `json:"path" db:"path"` // ptype -> mount path
}

// ResourceStatus is the service-catalog instance status.
type ResourceStatus string

const (
	ResourceStatusNone         ResourceStatus = ""
	ResourceStatusProvisioning ResourceStatus = "Provisioning"
	ResourceStatusReady        ResourceStatus = "Ready"
	ResourceStatusFailed       ResourceStatus = "Failed"
)

// ResourceBindingStatus is the service-catalog binding status.
type ResourceBindingStatus string

const (
	BindingStatusNone      ResourceBindingStatus = ""
	BindingStatusBinding   ResourceBindingStatus = "Binding"
	BindingStatusReady     ResourceBindingStatus = "Ready"
	BindingStatusFailed    ResourceBindingStatus = "Failed"
)

// Resource is a provisioned service-catalog instance+binding.
type Resource struct {
	ID      string                `json:"id" db:"id"`
	App     string                `json:"app" db:"app"`
	Name    string                `json:"name" db:"name"`
	Plan    string                `json:"plan" db:"plan"` // "class:plan"
	Options map[string]string     `json:"options" db:"options"`
	Status  ResourceStatus        `json:"status" db:"status"`
	Binding ResourceBindingStatus `json:"binding" db:"binding"`
	Data    map[string]string     `json:"data" db:"data"`
	Created time.Time             `json:"created" db:"created"`
}

// LimitPlan is an immutable named resource-shape spec.
type LimitPlan struct {
	ID                    string            `json:"id" db:"id"`
	Limits                map[string]string `json:"limits" db:"limits"`
	Requests              map[string]string `json:"requests" db:"requests"`
	Annotations           map[string]string `json:"annotations" db:"annotations"`
	NodeSelector          map[string]string `json:"node_selector" db:"node_selector"`
	RuntimeClassName      string            `json:"runtime_class_name" db:"runtime_class_name"`
	PodVolumes            []string          `json:"pod_volumes" db:"pod_volumes"`
	ContainerVolumeMounts []string          `json:"container_volume_mounts" db:"container_volume_mounts"`
	PodSecurityContext       map[string]string `json:"pod_security_context" db:"pod_security_context"`
	ContainerSecurityContext map[string]string `json:"container_security_context" db:"container_security_context"`
}

// Token is an opaque OAuth credential record.
type Token struct {
	Key          string    `json:"key" db:"key"`
	AccessToken  string    `json:"access_token" db:"access_token"`
	ExpiresIn    int64     `json:"expires_in" db:"expires_in"`
	TokenType    string    `json:"token_type" db:"token_type"`
	Scope        string    `json:"scope" db:"scope"`
	RefreshToken string    `json:"refresh_token" db:"refresh_token"`
	Created      time.Time `json:"created" db:"created"`
}

// ReservedPtypes are ptype names the system reserves for its own use;
// App.structure and deploy plans reject these as user ptypes.
var ReservedPtypes = map[string]bool{
	"run": true,
}
