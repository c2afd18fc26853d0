package workers

import (
	"context"
	"time"
)

// Measurement is one metrics sample shipped to the downstream metrics
// sink (spec.md §6 `metrics/*`).
type Measurement struct {
	App       string
	Ptype     string
	CPU       float64
	Memory    float64
	Timestamp time.Time
}

// MeasurementSink is the capability SendMeasurements ships samples to.
type MeasurementSink interface {
	Send(ctx context.Context, m []Measurement) error
}

const (
	measurementsBase = 8 * time.Second
	measurementsCap  = 3600 * time.Second
)

// SendMeasurements ships a batch of samples, retrying unbounded on any
// error with exponential-plus-jitter backoff (base 8s, cap 3600s)
// (spec.md §4.9).
func SendMeasurements(ctx context.Context, sink MeasurementSink, batch []Measurement) error {
	policy := Policy{
		ShouldRetry: RetryAnyError,
		Backoff:     ExponentialJitterBackoff(measurementsBase, measurementsCap),
	}
	return Run(ctx, policy, func(ctx context.Context) error {
		return sink.Send(ctx, batch)
	})
}
