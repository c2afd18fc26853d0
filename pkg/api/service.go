package api

import (
	"context"

	"github.com/drycc/controller/pkg/store"
)

// AppService is the contract pkg/app.Controller satisfies for the
// `apps` resource group.
type AppService interface {
	Create(ctx context.Context, owner string) (*store.App, error)
	Get(ctx context.Context, id string) (*store.App, error)
	List(ctx context.Context, owner string) ([]store.App, error)
	Delete(ctx context.Context, id string) error
	TransferOwner(ctx context.Context, id, newOwner string) error
}

// BuildService is the contract pkg/release.Engine satisfies for the
// `build` resource group.
type BuildService interface {
	CreateFromBuild(ctx context.Context, user, appID string, build store.Build) (*store.Release, error)
}

// ConfigService is the contract pkg/release.Engine satisfies for the
// `config` resource group.
type ConfigService interface {
	CreateFromConfig(ctx context.Context, user, appID string, cfg store.Config) (*store.Release, error)
}

// ReleaseService is the contract pkg/release.Engine satisfies for the
// `releases` resource group.
type ReleaseService interface {
	Latest(ctx context.Context, appID string) (*store.Release, error)
	Previous(ctx context.Context, appID string, beforeVersion int) (*store.Release, error)
	List(ctx context.Context, appID string) ([]store.Release, error)
	RollbackTo(ctx context.Context, user, appID string, version int) (*store.Release, error)
}

// DeployService is the contract pkg/deploy.Orchestrator satisfies for
// deploy/scale/restart/clean operations under `releases` and `ptypes`.
type DeployService interface {
	Deploy(ctx context.Context, app *store.App, rel *store.Release, ptypes []string, force, rollbackOnFailure bool) error
	Scale(ctx context.Context, app *store.App, user string, structure map[string]int32) (*store.App, error)
	Restart(ctx context.Context, app *store.App, ptype, podName string) error
	Clean(ctx context.Context, app *store.App, rel *store.Release, ptypes []string) error
	Mount(ctx context.Context, app *store.App, user string, volumes []store.Volume, ptypes []string) error
}

// RunService is the contract pkg/app.Run satisfies for the `run`
// one-off job endpoint.
type RunService interface {
	Run(ctx context.Context, app *store.App, rel *store.Release, build *store.Build, cfg *store.Config, command []string, timeout, expires int64) (string, error)
}

// AutoscaleService is the contract pkg/app.Autoscale satisfies.
type AutoscaleService interface {
	Autoscale(ctx context.Context, appID, ptype string, spec *store.AutoscaleSpec) error
}

// ResourceService is the contract pkg/app's resource.go functions
// satisfy for the `resources` (+binding) resource group.
type ResourceService interface {
	Retrieve(ctx context.Context, res *store.Resource) error
	Bind(ctx context.Context, res *store.Resource) error
	Unbind(ctx context.Context, res *store.Resource) error
	DetachResource(ctx context.Context, res *store.Resource, bindingSecretName string) error
}

// ProjectionService is the contract pkg/app/projections.go satisfies
// for the `ptypes/{name}/describe` and `pods/{name}/describe`
// endpoints.
type ProjectionService interface {
	DescribePod(ctx context.Context, appID, name string) (interface{}, []EventSummaryView, error)
	ListPods(ctx context.Context, appID, ptype string) (interface{}, error)
	DescribeDeployment(ctx context.Context, appID, ptype string) (interface{}, []EventSummaryView, error)
	ListDeployments(ctx context.Context, appID string) (interface{}, error)
}
