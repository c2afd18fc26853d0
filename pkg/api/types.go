// Package api defines the Go contracts an HTTP layer would bind to:
// the service interfaces C5–C8 satisfy, their request/response DTOs,
// and the URL map as a documentation/routing-generation data table.
// Building the HTTP surface itself is an explicit Non-goal (spec.md
// §6); this package exists so a router can be bolted on later without
// reaching back into pkg/release, pkg/deploy, pkg/app or pkg/workers.
package api

import "github.com/drycc/controller/pkg/store"

// CreateAppRequest is the body of POST /v2/apps. ID is optional; the
// controller mints one when empty.
type CreateAppRequest struct {
	ID string `json:"id,omitempty"`
}

// TransferOwnerRequest is the body of POST /v2/apps/{id} when it
// carries an owner field.
type TransferOwnerRequest struct {
	Owner string `json:"owner"`
}

// CreateBuildRequest is the body of POST /v2/apps/{id}/build.
type CreateBuildRequest struct {
	Image     string                        `json:"image"`
	Stack     string                        `json:"stack,omitempty"`
	Sha       string                        `json:"sha,omitempty"`
	Procfile  map[string]string             `json:"procfile,omitempty"`
	Dryccfile map[string]store.PipelineStep `json:"dryccfile,omitempty"`
}

// ConfigPatchRequest is the body of POST /v2/apps/{id}/config; nil
// pointer fields mean "leave unchanged", a present key mapped to a
// null JSON value means "unset".
type ConfigPatchRequest struct {
	Values                 []store.EnvValue                  `json:"values,omitempty"`
	Limits                 map[string]*string                 `json:"limits,omitempty"`
	Registry               map[string]*store.RegistryAuth      `json:"registry,omitempty"`
	Healthcheck            map[string]*store.Healthcheck       `json:"healthcheck,omitempty"`
	Tags                   map[string]map[string]string       `json:"tags,omitempty"`
	LifecyclePostStart     map[string]*string                 `json:"lifecycle_post_start,omitempty"`
	LifecyclePreStop       map[string]*string                 `json:"lifecycle_pre_stop,omitempty"`
	TerminationGracePeriod map[string]*int64                  `json:"termination_grace_period,omitempty"`
}

// DeployRequest is the body of POST /v2/apps/{id}/releases/deploy.
type DeployRequest struct {
	Ptypes []string `json:"ptypes,omitempty"` // empty means all declared ptypes
	Force  bool     `json:"force,omitempty"`
}

// RollbackRequest is the body of POST /v2/apps/{id}/releases/rollback.
type RollbackRequest struct {
	Version int `json:"version"` // 0 means "previous"
}

// ScaleRequest is the body of POST /v2/apps/{id}/ptypes/scale.
type ScaleRequest struct {
	Structure map[string]int32 `json:"structure"`
}

// RestartRequest is the body of POST /v2/apps/{id}/ptypes/restart.
type RestartRequest struct {
	Ptype string `json:"ptype,omitempty"`
	Pod   string `json:"pod,omitempty"`
}

// RunRequest is the body of POST /v2/apps/{id}/run. Timeout and
// Expires are seconds; omitted or zero takes run()'s 3600s default
// for active_deadline_seconds/ttl_seconds_after_finished.
type RunRequest struct {
	Command []string `json:"command"`
	Timeout int64    `json:"timeout,omitempty"`
	Expires int64    `json:"expires,omitempty"`
}

// RunResponse carries the launched Job's name for log-following.
type RunResponse struct {
	JobName string `json:"job_name"`
}

// AutoscaleRequest is the body of POST /v2/apps/{id}/ptypes/{name}/autoscale.
// A nil Autoscale removes the HPA.
type AutoscaleRequest struct {
	Autoscale *store.AutoscaleSpec `json:"autoscale"`
}

// MountRequest is the body of POST /v2/apps/{id}/volumes/path.
type MountRequest struct {
	Volumes []store.Volume `json:"volumes"`
	Ptypes  []string       `json:"ptypes,omitempty"`
}

// BindResourceRequest is the body of POST /v2/apps/{id}/resources/{name}/binding.
type BindResourceRequest struct {
	Bind bool `json:"bind"` // false means unbind
}

// DescribeResponse wraps a projection plus its recent cluster events,
// the common shape of the ptypes/{name}/describe and pods/{name}/describe
// endpoints.
type DescribeResponse struct {
	Object interface{}        `json:"object"`
	Events []EventSummaryView `json:"events"`
}

// EventSummaryView mirrors k8s.EventSummary without importing pkg/k8s,
// keeping pkg/api free of a client-go dependency.
type EventSummaryView struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
	Type    string `json:"type"`
	Count   int32  `json:"count"`
}
