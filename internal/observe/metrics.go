// Package observe provides application-wide observability primitives for
// earshot: OpenTelemetry metrics and a Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via a standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all earshot metrics.
const meterName = "github.com/sonaptic/earshot"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// InferenceDuration tracks classifier inference latency.
	InferenceDuration metric.Float64Histogram

	// Results counts delivered classification results. Use with attribute:
	//   attribute.String("top_label", ...)
	Results metric.Int64Counter

	// Errors counts classification and initialization failures.
	Errors metric.Int64Counter

	// SkippedCycles counts scheduler cycles dropped by the in-flight guard.
	SkippedCycles metric.Int64Counter

	// ActiveStreams tracks the number of running schedulers.
	ActiveStreams metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for on-device inference latencies.
var latencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.InferenceDuration, err = m.Float64Histogram("earshot.inference.duration",
		metric.WithDescription("Latency of classifier inference."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Results, err = m.Int64Counter("earshot.results",
		metric.WithDescription("Total classification results delivered, by top label."),
	); err != nil {
		return nil, err
	}
	if met.Errors, err = m.Int64Counter("earshot.errors",
		metric.WithDescription("Total classification and initialization failures."),
	); err != nil {
		return nil, err
	}
	if met.SkippedCycles, err = m.Int64Counter("earshot.cycles.skipped",
		metric.WithDescription("Scheduler cycles skipped because a classification was still in flight."),
	); err != nil {
		return nil, err
	}
	if met.ActiveStreams, err = m.Int64UpDownCounter("earshot.active_streams",
		metric.WithDescription("Number of running streaming schedulers."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordResult records a delivered result with its inference latency and
// top label.
func (m *Metrics) RecordResult(ctx context.Context, topLabel string, seconds float64) {
	m.InferenceDuration.Record(ctx, seconds)
	m.Results.Add(ctx, 1,
		metric.WithAttributes(attribute.String("top_label", topLabel)),
	)
}

// RecordError records a classification failure.
func (m *Metrics) RecordError(ctx context.Context) {
	m.Errors.Add(ctx, 1)
}

// RecordSkippedCycle records a scheduler cycle dropped by the in-flight
// guard. Wire it to the scheduler with stream.WithSkipHook.
func (m *Metrics) RecordSkippedCycle(ctx context.Context) {
	m.SkippedCycles.Add(ctx, 1)
}
