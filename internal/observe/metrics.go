// Package observe provides application-wide observability primitives for
// Taratil: OpenTelemetry metrics, distributed tracing, structured logging,
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

// meterName is the instrumentation scope name used for all Taratil metrics.
const meterName = "github.com/sherbini/taratil"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Histograms ---

	// ComparisonScore tracks the distribution of verse comparison scores.
	ComparisonScore metric.Float64Histogram

	// SessionDuration tracks practice session length from start to end.
	SessionDuration metric.Float64Histogram

	// SynthesisDuration tracks verse audio synthesis latency.
	SynthesisDuration metric.Float64Histogram

	// --- Counters ---

	// Comparisons counts verse comparisons. Use with attributes:
	//   attribute.String("classification", ...), attribute.String("passed", ...)
	Comparisons metric.Int64Counter

	// SessionsStarted counts recognition sessions started.
	SessionsStarted metric.Int64Counter

	// SessionTimeouts counts session timeouts. Use with attribute:
	//   attribute.String("reason", ...)
	SessionTimeouts metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts audio and recognition backend errors. Use with
	// attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live practice sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for
// synthesis and request latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// scoreBuckets defines histogram bucket boundaries for comparison scores
// in [0, 1].
var scoreBuckets = []float64{
	0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1,
}

// sessionBuckets defines histogram bucket boundaries (in seconds) for
// practice session lengths.
var sessionBuckets = []float64{
	1, 2.5, 5, 10, 15, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ComparisonScore, err = m.Float64Histogram("taratil.comparison.score",
		metric.WithDescription("Distribution of verse comparison scores."),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SessionDuration, err = m.Float64Histogram("taratil.session.duration",
		metric.WithDescription("Practice session length from start to end."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(sessionBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthesisDuration, err = m.Float64Histogram("taratil.synthesis.duration",
		metric.WithDescription("Latency of verse audio synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Comparisons, err = m.Int64Counter("taratil.comparisons",
		metric.WithDescription("Total verse comparisons by classification and pass/fail."),
	); err != nil {
		return nil, err
	}
	if met.SessionsStarted, err = m.Int64Counter("taratil.sessions.started",
		metric.WithDescription("Total recognition sessions started."),
	); err != nil {
		return nil, err
	}
	if met.SessionTimeouts, err = m.Int64Counter("taratil.sessions.timeouts",
		metric.WithDescription("Total session timeouts by reason."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("taratil.provider.errors",
		metric.WithDescription("Total backend errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("taratil.active_sessions",
		metric.WithDescription("Number of live practice sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("taratil.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordComparison is a convenience method that records one comparison:
// the score histogram sample plus the classification counter increment.
func (m *Metrics) RecordComparison(ctx context.Context, score float64, classification string, passed bool) {
	m.ComparisonScore.Record(ctx, score)
	status := "failed"
	if passed {
		status = "passed"
	}
	m.Comparisons.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("classification", classification),
			attribute.String("passed", status),
		),
	)
}

// RecordSessionTimeout is a convenience method that records a session
// timeout counter increment.
func (m *Metrics) RecordSessionTimeout(ctx context.Context, reason string) {
	m.SessionTimeouts.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
