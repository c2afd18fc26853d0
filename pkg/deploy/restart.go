package deploy

import (
	"context"

	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/store"
)

// Restart triggers a rolling restart of ptype's Deployment, or deletes
// a single named pod (letting the Deployment replace it) when name is
// given (spec.md §4.5 restart).
func (o *Orchestrator) Restart(ctx context.Context, app *store.App, ptype, name string) error {
	if name != "" {
		if err := o.k8s.DeletePod(ctx, app.ID, name); err != nil {
			return ctlerr.Wrap(ctlerr.ServiceUnavailable, "delete pod", err)
		}
		return nil
	}
	if err := o.k8s.RestartDeployment(ctx, app.ID, appDeploymentName(app.ID, ptype)); err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "restart deployment", err)
	}
	return nil
}
