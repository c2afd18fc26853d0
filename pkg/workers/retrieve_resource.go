package workers

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/drycc/controller/pkg/app"
	"github.com/drycc/controller/pkg/store"
)

// RetrieveResource polls the service catalog for res's instance and
// binding status, retrying unbounded on any error with the custom
// 30s/1h-then-30m/12h backoff (spec.md §4.9).
func RetrieveResource(ctx context.Context, controller *app.Controller, catalog app.ServiceCatalog, s *store.Store, appID, resourceName string) error {
	log := logrus.WithField("worker", "retrieve_resource").WithField("resource", resourceName)

	res, err := s.Resources.Get(ctx, appID, resourceName)
	if err != nil {
		log.WithError(err).Info("resource no longer exists, dropping")
		return ErrDoesNotExist
	}

	policy := Policy{
		ShouldRetry: RetryAnyError,
		Backoff:     ResourceRetrieveBackoff(res.Created),
	}

	return Run(ctx, policy, func(ctx context.Context) error {
		return controller.Retrieve(ctx, catalog, res)
	})
}
