package deploy

import (
	"context"

	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/release"
	"github.com/drycc/controller/pkg/store"
)

// Clean scales to zero any ptype present in app.Structure but absent
// from the release's declared ptypes, then deletes the corresponding
// Deployments and any Secrets whose `type` label fell out of the
// current structure (spec.md §4.5 clean).
//
// This does not take the DeployLock around the scale-then-delete
// sequence; a concurrent mid-rollout deploy of the same ptype can
// race with the delete, matching the observed behavior this is
// grounded on rather than silently fixing it.
func (o *Orchestrator) Clean(ctx context.Context, app *store.App, rel *store.Release, ptypes []string) error {
	var build *store.Build
	var err error
	if rel.HasBuild() {
		build, err = o.store.Builds.Get(ctx, rel.Build)
		if err != nil {
			return err
		}
	}
	declared := release.Ptypes(build)

	obsolete := ptypes
	if len(obsolete) == 0 {
		for ptype := range app.Structure {
			if !declared[ptype] {
				obsolete = append(obsolete, ptype)
			}
		}
	}

	newStructure := map[string]int32{}
	for ptype, count := range app.Structure {
		newStructure[ptype] = count
	}
	for _, ptype := range obsolete {
		newStructure[ptype] = 0
	}
	if _, err := o.store.Apps.UpdateStructure(ctx, app.ID, app.Updated.UnixNano(), newStructure); err != nil {
		return err
	}

	for _, ptype := range obsolete {
		if err := o.k8s.DeleteDeployment(ctx, app.ID, appDeploymentName(app.ID, ptype)); err != nil && !isNotFound(err) {
			return ctlerr.Wrap(ctlerr.ServiceUnavailable, "delete obsolete deployment", err)
		}
	}

	secrets, err := o.k8s.ListSecrets(ctx, app.ID, map[string]string{"heritage": "drycc"})
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "list secrets", err)
	}
	for _, secret := range secrets {
		ptype := secret.Labels["type"]
		if ptype == "" {
			continue
		}
		if _, stillPresent := newStructure[ptype]; stillPresent && newStructure[ptype] > 0 {
			continue
		}
		if err := o.k8s.DeleteSecret(ctx, app.ID, secret.Name); err != nil && !isNotFound(err) {
			return ctlerr.Wrap(ctlerr.ServiceUnavailable, "delete obsolete secret", err)
		}
	}

	return o.releases.Clean(ctx, rel, declared)
}
