package workers

import (
	"context"

	"github.com/drycc/controller/pkg/app"
)

const downstreamOwnerMaxRetries = 3

// DownstreamModelOwner re-runs Controller.TransferOwner asynchronously,
// retrying on any error. Grounded on the ownership-cascade retry in
// original_source's models/base.py; retries 3 times with the default
// backoff (spec.md §4.9).
func DownstreamModelOwner(ctx context.Context, controller *app.Controller, appID, newOwner string) error {
	policy := Policy{
		ShouldRetry: RetryAnyError,
		Backoff:     DefaultBackoff,
		MaxRetries:  downstreamOwnerMaxRetries,
	}
	return Run(ctx, policy, func(ctx context.Context) error {
		return controller.TransferOwner(ctx, appID, newOwner)
	})
}
