package workers

import (
	"context"

	"github.com/drycc/controller/pkg/deploy"
	"github.com/drycc/controller/pkg/store"
)

const clusterMutationMaxRetries = 3

// ScaleApp retries deploy.Orchestrator.Scale up to 3 times on
// ServiceUnavailable with jittered backoff (spec.md §4.9).
func ScaleApp(ctx context.Context, orch *deploy.Orchestrator, s *store.Store, user, appID string, structure map[string]int32) error {
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
		_, err := orch.Scale(ctx, app, user, structure)
		return err
	})
}
