package port

import "context"

// Instrumentation records application-level metrics.
type Instrumentation interface {
	RecordProfileDuration(ctx context.Context, ms float64)
	IncrementProfileCount(ctx context.Context)
	IncrementProfileErrors(ctx context.Context)
	IncrementSlowQueries(ctx context.Context)
	RecordToolDuration(ctx context.Context, ms float64)
}

// NoopInstrumentation discards all metrics.
type NoopInstrumentation struct{}

func (NoopInstrumentation) RecordProfileDuration(context.Context, float64) {}
func (NoopInstrumentation) IncrementProfileCount(context.Context)          {}
func (NoopInstrumentation) IncrementProfileErrors(context.Context)         {}
func (NoopInstrumentation) IncrementSlowQueries(context.Context)           {}
func (NoopInstrumentation) RecordToolDuration(context.Context, float64)    {}
