package deploy

import (
	"context"

	"github.com/drycc/controller/pkg/store"
)

// StateToK8s reconciles observed cluster state against the desired
// app.Structure: for each ptype with scale > 0 whose Deployment is
// missing, it returns that ptype for the caller to enqueue a redeploy
// task for; other non-404 errors are logged but do not abort the scan
// (spec.md §4.5 state_to_k8s).
func (o *Orchestrator) StateToK8s(ctx context.Context, app *store.App) []string {
	var needsRedeploy []string
	for ptype, count := range app.Structure {
		if count <= 0 {
			continue
		}
		_, err := o.k8s.GetDeployment(ctx, app.ID, appDeploymentName(app.ID, ptype))
		if err == nil {
			continue
		}
		if isNotFound(err) {
			needsRedeploy = append(needsRedeploy, ptype)
			continue
		}
		o.log.WithError(err).WithField("ptype", ptype).Warn("state_to_k8s: unexpected error checking deployment")
	}
	return needsRedeploy
}
