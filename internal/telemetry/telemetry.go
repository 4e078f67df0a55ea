package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// instrumentationName scopes every span and instrument querylens emits.
const instrumentationName = "github.com/guillermoBallester/querylens"

// Provider owns the trace and metric pipelines of one process. A nil Provider
// is valid and hands out noop tracers and instruments.
type Provider struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

// Init exports spans and metrics over OTLP gRPC and registers the providers
// globally. The endpoint comes from OTEL_EXPORTER_OTLP_ENDPOINT.
func Init(ctx context.Context, serviceName, version string) (*Provider, error) {
	res, err := newResource(ctx, serviceName, version)
	if err != nil {
		return nil, err
	}

	spans, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	metrics, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		_ = spans.Shutdown(ctx)
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	p := newProvider(
		sdktrace.NewTracerProvider(sdktrace.WithBatcher(spans), sdktrace.WithResource(res)),
		sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metrics)), sdkmetric.WithResource(res)),
	)

	otel.SetTracerProvider(p.tp)
	otel.SetMeterProvider(p.mp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return p, nil
}

func newProvider(tp *sdktrace.TracerProvider, mp *sdkmetric.MeterProvider) *Provider {
	return &Provider{tp: tp, mp: mp}
}

func newResource(ctx context.Context, serviceName, version string) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating otel resource: %w", err)
	}
	return res, nil
}

// Tracer returns the querylens tracer, or a noop tracer when p is nil.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil || p.tp == nil {
		return noop.NewTracerProvider().Tracer(instrumentationName)
	}
	return p.tp.Tracer(instrumentationName)
}

// Instruments returns the querylens metric instruments, or noop ones when p is nil.
func (p *Provider) Instruments() *Instruments {
	if p == nil || p.mp == nil {
		return NoopInstruments()
	}
	return newInstrumentsFromMeter(p.mp.Meter(instrumentationName))
}

// Shutdown flushes pending spans and metrics.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.tp != nil {
		if err := p.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down tracer: %w", err))
		}
	}
	if p.mp != nil {
		if err := p.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down meter: %w", err))
		}
	}
	return errors.Join(errs...)
}
