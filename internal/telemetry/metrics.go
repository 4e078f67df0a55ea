package telemetry

import (
	"context"

	"github.com/guillermoBallester/querylens/internal/core/port"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Instruments holds pre-created OTel metric instruments.
type Instruments struct {
	ProfileCount    metric.Int64Counter
	ProfileDuration metric.Float64Histogram
	ProfileErrors   metric.Int64Counter
	SlowQueries     metric.Int64Counter
	ToolDuration    metric.Float64Histogram
}

var _ port.Instrumentation = (*Instruments)(nil)

// NoopInstruments returns instruments that record nothing.
func NoopInstruments() *Instruments {
	return newInstrumentsFromMeter(noop.NewMeterProvider().Meter(instrumentationName))
}

func newInstrumentsFromMeter(meter metric.Meter) *Instruments {
	// OTel SDK returns noop instruments on error; safe to discard.
	profileCount, _ := meter.Int64Counter("querylens.profile.count",
		metric.WithDescription("Total number of statements profiled"),
	)
	profileDuration, _ := meter.Float64Histogram("querylens.profile.duration",
		metric.WithDescription("Measured statement execution time in milliseconds"),
		metric.WithUnit("ms"),
	)
	profileErrors, _ := meter.Int64Counter("querylens.profile.errors",
		metric.WithDescription("Total number of failed profiles"),
	)
	slowQueries, _ := meter.Int64Counter("querylens.profile.slow",
		metric.WithDescription("Profiled statements slower than the threshold"),
	)
	toolDuration, _ := meter.Float64Histogram("querylens.tool.duration",
		metric.WithDescription("MCP tool call duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return &Instruments{
		ProfileCount:    profileCount,
		ProfileDuration: profileDuration,
		ProfileErrors:   profileErrors,
		SlowQueries:     slowQueries,
		ToolDuration:    toolDuration,
	}
}

func (i *Instruments) RecordProfileDuration(ctx context.Context, ms float64) {
	i.ProfileDuration.Record(ctx, ms)
}

func (i *Instruments) IncrementProfileCount(ctx context.Context) {
	i.ProfileCount.Add(ctx, 1)
}

func (i *Instruments) IncrementProfileErrors(ctx context.Context) {
	i.ProfileErrors.Add(ctx, 1)
}

func (i *Instruments) IncrementSlowQueries(ctx context.Context) {
	i.SlowQueries.Add(ctx, 1)
}

func (i *Instruments) RecordToolDuration(ctx context.Context, ms float64) {
	i.ToolDuration.Record(ctx, ms)
}
