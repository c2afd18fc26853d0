package workers

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Job is one unit of background work submitted to the Pool.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Pool is a goroutine+channel bounded worker pool the controller
// process starts once at boot and submits Jobs to for the lifetime of
// the process — distinct from taskrunner.Runner, which bounds
// parallelism within a single deploy call (spec.md §5 "the Task
// Runner pool is process-wide").
type Pool struct {
	jobs chan Job
	wg   sync.WaitGroup
	log  *logrus.Entry
}

// NewPool starts workers goroutines draining a buffered job queue.
func NewPool(ctx context.Context, workerCount, queueDepth int) *Pool {
	p := &Pool{
		jobs: make(chan Job, queueDepth),
		log:  logrus.WithField("component", "workers"),
	}
	for i := 0; i < workerCount; i++ {
		p.wg.Add(1)
		go p.loop(ctx)
	}
	return p
}

func (p *Pool) loop(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			if err := job.Run(ctx); err != nil {
				p.log.WithError(err).WithField("job", job.Name).Error("background job failed")
			}
		}
	}
}

// Submit enqueues a Job, blocking if the queue is full.
func (p *Pool) Submit(job Job) {
	p.jobs <- job
}

// Close stops accepting new jobs and waits for in-flight ones to
// drain.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}
