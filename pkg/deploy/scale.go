package deploy

import (
	"context"

	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/store"
	"github.com/drycc/controller/pkg/taskrunner"
)

// Scale validates the requested structure, applies only the ptypes
// whose replica count changed, and reverts to the previous counts if
// any apply fails with ServiceUnavailable (spec.md §4.5 scale, §8
// testable property "scale rollback").
func (o *Orchestrator) Scale(ctx context.Context, app *store.App, user string, structure map[string]int32) (*store.App, error) {
	if err := validateStructure(structure); err != nil {
		return nil, err
	}

	rel, err := o.releases.Latest(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	if !rel.HasBuild() {
		return nil, ctlerr.New(ctlerr.Drycc, "no build")
	}

	old := app.Structure
	changed := diffStructure(old, structure)
	if len(changed) == 0 {
		return app, nil
	}

	if err := o.scalePods(ctx, app, structure, changed); err != nil {
		if ctlerr.Is(err, ctlerr.ServiceUnavailable) {
			_ = o.scalePods(ctx, app, old, changed)
		}
		return nil, err
	}

	updated, err := o.store.Apps.UpdateStructure(ctx, app.ID, app.Updated.UnixNano(), structure)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (o *Orchestrator) scalePods(ctx context.Context, app *store.App, structure map[string]int32, ptypes []string) error {
	var tasks []taskrunner.Task
	for _, ptype := range ptypes {
		ptype := ptype
		replicas := structure[ptype]
		tasks = append(tasks, taskrunner.Task{
			Action: func() error {
				if err := o.k8s.ScaleDeployment(ctx, app.ID, appDeploymentName(app.ID, ptype), replicas); err != nil {
					return ctlerr.Wrap(ctlerr.ServiceUnavailable, "scale deployment", err)
				}
				return nil
			},
		})
	}
	return o.tasks.Run(tasks)
}

func appDeploymentName(appID, ptype string) string {
	return appID + "-" + ptype
}

func validateStructure(structure map[string]int32) error {
	for ptype, count := range structure {
		if store.ReservedPtypes[ptype] {
			return ctlerr.Newf(ctlerr.Drycc, "ptype %q is reserved", ptype)
		}
		if count < 0 {
			return ctlerr.Newf(ctlerr.Validation, "ptype %q replica count must be >= 0", ptype)
		}
	}
	return nil
}

func diffStructure(old, new map[string]int32) []string {
	var changed []string
	for ptype, count := range new {
		if old[ptype] != count {
			changed = append(changed, ptype)
		}
	}
	return changed
}
