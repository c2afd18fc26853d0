package deploy

import (
	"context"

	"github.com/drycc/controller/pkg/k8s"
)

// RolloutPhase mirrors the condition vocabulary argo-rollouts uses for
// its Progressing/Available conditions, applied here to a plain
// apps/v1 Deployment instead of a Rollout object — this controller
// does not manage canary Rollouts, only the phase naming.
type RolloutPhase string

const (
	RolloutProgressing RolloutPhase = "Progressing"
	RolloutDegraded    RolloutPhase = "Degraded"
	RolloutHealthy     RolloutPhase = "Healthy"
)

// DeploymentPhase reports a coarse rollout phase for a ptype's
// Deployment, used by read-only ptype describe projections.
func (o *Orchestrator) DeploymentPhase(ctx context.Context, namespace, name string) (RolloutPhase, error) {
	inProgress, okToProceed, err := o.k8s.InProgress(ctx, namespace, name, 0)
	if err != nil {
		if isNotFound(err) {
			return RolloutHealthy, nil
		}
		return "", err
	}
	if inProgress && !okToProceed {
		return RolloutDegraded, nil
	}
	if inProgress {
		return RolloutProgressing, nil
	}
	return RolloutHealthy, nil
}

func isNotFound(err error) bool {
	return k8s.IsNotFound(err)
}
