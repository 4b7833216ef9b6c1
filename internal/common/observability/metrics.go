package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability carries the OpenTelemetry instruments recorded per fan-out
// batch and per job. A zero value is usable and records nothing.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider tracerShutdown

	meter         otelmetric.Meter
	batchCounter  otelmetric.Int64Counter
	outcomeCount  otelmetric.Int64Counter
	batchDuration otelmetric.Float64Histogram
	jobCounter    otelmetric.Int64Counter
	jobDuration   otelmetric.Float64Histogram
}

type tracerShutdown interface {
	Shutdown(ctx context.Context) error
}

// New registers a prometheus-backed meter provider. Metrics show up on the
// same /metrics endpoint as the promauto collectors.
func New(serviceName string) (*Observability, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, err
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	o := newWithMeter(provider.Meter(serviceName))
	o.meterProvider = provider
	return o, nil
}

// NewNoop returns instruments backed by the no-op meter, for tests.
func NewNoop() *Observability {
	return newWithMeter(noop.NewMeterProvider().Meter("noop"))
}

func newWithMeter(meter otelmetric.Meter) *Observability {
	o := &Observability{meter: meter}

	o.batchCounter, _ = meter.Int64Counter(
		"notifications.batches",
		otelmetric.WithDescription("Fan-out batches executed"),
	)
	o.outcomeCount, _ = meter.Int64Counter(
		"notifications.outcomes",
		otelmetric.WithDescription("Delivery outcomes by status"),
	)
	o.batchDuration, _ = meter.Float64Histogram(
		"notifications.batch.duration",
		otelmetric.WithDescription("Wall time of a fan-out batch"),
		otelmetric.WithUnit("ms"),
	)
	o.jobCounter, _ = meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)
	o.jobDuration, _ = meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)

	return o
}

func (o *Observability) RecordBatch(ctx context.Context, operation string, tasks int, statuses map[string]int, duration time.Duration) {
	if o == nil || o.batchCounter == nil {
		return
	}
	op := attribute.String("operation", operation)
	o.batchCounter.Add(ctx, 1, otelmetric.WithAttributes(op))
	o.batchDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(op))
	for status, n := range statuses {
		o.outcomeCount.Add(ctx, int64(n), otelmetric.WithAttributes(op, attribute.String("status", status)))
	}
}

func (o *Observability) RecordJobProcessed(ctx context.Context, status string) {
	if o == nil || o.jobCounter == nil {
		return
	}
	o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("status", status)))
}

func (o *Observability) RecordJobDuration(ctx context.Context, duration time.Duration, status string) {
	if o == nil || o.jobDuration == nil {
		return
	}
	o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("status", status),
	))
}

func (o *Observability) Shutdown(ctx context.Context) {
	if o == nil {
		return
	}
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
}
