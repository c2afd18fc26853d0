// Package workers implements the Background Task Runner (C8): retrying
// resource-polling, measurement-shipping and cluster-mutation jobs,
// each parameterized by the backoff policy spec.md §4.9 assigns it.
package workers

import (
	"context"
	"errors"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/drycc/controller/pkg/ctlerr"
)

// Backoff computes the delay before retry attempt n (1-indexed).
type Backoff func(attempt int) time.Duration

// ShouldRetry decides whether an error warrants another attempt.
type ShouldRetry func(err error) bool

// RetryAnyError retries on any non-nil error — used by
// retrieve_resource and send_measurements.
func RetryAnyError(err error) bool { return err != nil }

// RetryServiceUnavailable retries only on ctlerr.ServiceUnavailable —
// used by scale_app, restart_app and mount_app.
func RetryServiceUnavailable(err error) bool {
	return ctlerr.Is(err, ctlerr.ServiceUnavailable)
}

// ExponentialJitterBackoff grows 2^(attempt-1) * base, capped at max, and
// jitters the result down to apimachinery/util/wait's half-to-full
// range so concurrent retries don't lock step.
func ExponentialJitterBackoff(base, max time.Duration) Backoff {
	return func(attempt int) time.Duration {
		d := base * time.Duration(1<<uint(attempt-1))
		if d > max || d <= 0 {
			d = max
		}
		return wait.Jitter(d/2, 1.0)
	}
}

// clusterJitterBase is the base delay for the jittered cluster-mutation
// retry policies (scale_app, restart_app, mount_app).
const clusterJitterBase = 2 * time.Second

// JitterBackoff keeps the delay within [base/2, base) via
// apimachinery/util/wait's Jitter.
func JitterBackoff(base time.Duration) Backoff {
	return func(attempt int) time.Duration {
		return wait.Jitter(base/2, 1.0)
	}
}

// ResourceRetrieveBackoff implements the custom table-driven policy:
// 30s intervals for the first hour since creation, then 30-minute
// intervals for the next 12 hours. Controller-restart behavior is
// unspecified upstream; this implementation measures elapsed time from
// the wall-clock `since` the caller passes (typically the Resource
// row's creation time), matching the ambiguity noted in the Design
// Notes rather than silently resolving it.
func ResourceRetrieveBackoff(since time.Time) Backoff {
	return func(attempt int) time.Duration {
		elapsed := time.Since(since)
		if elapsed < time.Hour {
			return 30 * time.Second
		}
		return 30 * time.Minute
	}
}

// DefaultBackoff is a flat 5-second delay, used by workers with no
// documented custom policy (downstream_model_owner).
func DefaultBackoff(_ int) time.Duration { return 5 * time.Second }

// ErrDoesNotExist marks an entity-lookup miss that workers log and
// swallow rather than retry or fail loudly (spec.md §4.9).
var ErrDoesNotExist = errors.New("entity does not exist")

// Policy bundles a retry decision, backoff, and bound on retries after
// the first attempt. maxRetries <= 0 means unbounded.
type Policy struct {
	ShouldRetry ShouldRetry
	Backoff     Backoff
	MaxRetries  int
}

// Run executes fn, retrying per policy until it succeeds, the retry
// predicate declines, maxRetries is exhausted, or ctx is cancelled.
// ErrDoesNotExist is logged and swallowed rather than retried,
// matching every worker's DoesNotExist handling.
func Run(ctx context.Context, policy Policy, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrDoesNotExist) {
			return nil
		}
		lastErr = err

		if !policy.ShouldRetry(err) {
			return err
		}
		if policy.MaxRetries > 0 && attempt > policy.MaxRetries {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.Backoff(attempt)):
		}
	}
}
