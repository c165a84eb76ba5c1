// Package observe provides application-wide observability primitives for
// haulvoice: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
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

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// Utterances counts interpreted utterances. Use with attributes:
	//   attribute.String("outcome", ...), attribute.String("intent", ...)
	Utterances metric.Int64Counter

	// RecognitionErrors counts speech recognition errors reported by
	// clients. Use with attribute:
	//   attribute.String("code", ...)
	RecognitionErrors metric.Int64Counter

	// WakeDetections counts wake-word detections. Use with attribute:
	//   attribute.String("method", ...)
	WakeDetections metric.Int64Counter

	// Handoffs counts hand-off slot operations. Use with attributes:
	//   attribute.String("op", ...), attribute.String("status", ...)
	Handoffs metric.Int64Counter

	// BreakerTransitions counts circuit breaker state changes of remote
	// hand-off stores. Use with attributes:
	//   attribute.String("store", ...), attribute.String("state", ...)
	BreakerTransitions metric.Int64Counter

	// InterpretDuration tracks the time from transcript to dispatched action.
	InterpretDuration metric.Float64Histogram

	// ActiveSessions tracks the number of connected dialogue sessions.
	ActiveSessions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("route", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// interpretBuckets defines histogram bucket boundaries (in seconds) for the
// in-process interpretation path, which is expected to stay well below a
// millisecond.
var interpretBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(scopeName)
	var err error
	met := &Metrics{}

	// Counters.
	if met.Utterances, err = m.Int64Counter("haulvoice.utterances",
		metric.WithDescription("Total interpreted utterances by outcome and intent."),
	); err != nil {
		return nil, err
	}
	if met.RecognitionErrors, err = m.Int64Counter("haulvoice.recognition.errors",
		metric.WithDescription("Total speech recognition errors by code."),
	); err != nil {
		return nil, err
	}
	if met.WakeDetections, err = m.Int64Counter("haulvoice.wake.detections",
		metric.WithDescription("Total wake-word detections by match method."),
	); err != nil {
		return nil, err
	}
	if met.Handoffs, err = m.Int64Counter("haulvoice.handoffs",
		metric.WithDescription("Total hand-off slot operations by op and status."),
	); err != nil {
		return nil, err
	}
	if met.BreakerTransitions, err = m.Int64Counter("haulvoice.handoff.breaker.transitions",
		metric.WithDescription("Circuit breaker state changes of remote hand-off stores."),
	); err != nil {
		return nil, err
	}

	// Histograms.
	if met.InterpretDuration, err = m.Float64Histogram("haulvoice.interpret.duration",
		metric.WithDescription("Latency of transcript interpretation and dispatch."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(interpretBuckets...),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("haulvoice.sessions.active",
		metric.WithDescription("Number of connected dialogue sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("haulvoice.http.request.duration",
		metric.WithDescription("HTTP request latency by method and route pattern."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// RecordUtterance records one interpreted utterance.
func (m *Metrics) RecordUtterance(ctx context.Context, outcome, intent string) {
	m.Utterances.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("outcome", outcome),
			attribute.String("intent", intent),
		),
	)
}

// RecordRecognitionError records one recognition error code.
func (m *Metrics) RecordRecognitionError(ctx context.Context, code string) {
	m.RecognitionErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("code", code)),
	)
}

// RecordWakeDetection records one wake-word detection.
func (m *Metrics) RecordWakeDetection(ctx context.Context, method string) {
	m.WakeDetections.Add(ctx, 1,
		metric.WithAttributes(attribute.String("method", method)),
	)
}

// RecordHandoff records one hand-off operation. op is "save" or "take";
// status is "ok", "empty", "malformed" or "error".
func (m *Metrics) RecordHandoff(ctx context.Context, op, status string) {
	m.Handoffs.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("op", op),
			attribute.String("status", status),
		),
	)
}

// RecordBreakerTransition records that the breaker of store entered state.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, store, state string) {
	m.BreakerTransitions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("store", store),
			attribute.String("state", state),
		),
	)
}
