// Package taskrunner provides the bounded-parallel fan-out the Deploy
// Orchestrator uses to drive per-ptype work concurrently (spec.md
// §4.3).
package taskrunner

import (
	"github.com/sourcegraph/conc/pool"
)

// Task pairs a zero-arg action with a callback applied to the
// action's error once it completes. The callback runs synchronously
// on completion of its own task, not serialized against other tasks'
// callbacks.
type Task struct {
	Action   func() error
	Callback func(err error)
}

// Runner bounds concurrent Task execution to a fixed parallelism.
type Runner struct {
	parallelism int
}

// New constructs a Runner with the given parallelism. A non-positive
// value is treated as unbounded, matching conc/pool's default.
func New(parallelism int) *Runner {
	return &Runner{parallelism: parallelism}
}

// Run submits every task to the pool, invokes each task's callback as
// its action completes, waits for the whole batch to drain, and then
// returns the first error any action raised (if any). The pool is
// fully drained before Run returns even when an action errors.
func (r *Runner) Run(tasks []Task) error {
	p := pool.New()
	if r.parallelism > 0 {
		p = p.WithMaxGoroutines(r.parallelism)
	}

	errs := make([]error, len(tasks))
	for i, t := range tasks {
		i, t := i, t
		p.Go(func() {
			err := t.Action()
			errs[i] = err
			if t.Callback != nil {
				t.Callback(err)
			}
		})
	}
	p.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
