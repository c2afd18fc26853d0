package workers

import (
	"context"

	"github.com/drycc/controller/pkg/deploy"
	"github.com/drycc/controller/pkg/store"
)

// RestartApp retries deploy.Orchestrator.Restart up to 3 times on
// ServiceUnavailable with jittered backoff (spec.md §4.9).
func RestartApp(ctx context.Context, orch *deploy.Orchestrator, s *store.Store, appID, ptype, podName string) error {
	app, err := s.Apps.Get(ctx, appID)
	if err != nil {
		return ErrDoesNotExist
	}

	policy := Policy{
		ShouldRetry: RetryServiceUnavailable,
		Backoff:     JitterBackoff(clusterJitterBase),
		MaxRetries:  clusterMutationMaxRetries,
	}
	return Run(ctx, policy, func(ctx context.Context) error {
		return orch.Restart(ctx, app, ptype, podName)
	})
}
