// Package observe holds the OpenTelemetry metric instruments for callbar.
//
// Instruments are created through the OTel metrics API. [InitProvider] wires
// the SDK to a Prometheus exporter so the numbers can be scraped from
// /metrics while a call is running. Without it every instrument records into
// the global no-op provider.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for all callbar metrics.
const meterName = "github.com/olivier-w/callbar"

// Error kinds reported on [Metrics.SessionErrors].
const (
	KindConfig    = "config"
	KindSession   = "session"
	KindTransport = "transport"
)

// Metrics holds the metric instruments. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	// SessionCreateDuration tracks the latency of the create-session call.
	SessionCreateDuration metric.Float64Histogram

	// SessionErrors counts failed calls. Use with attribute "kind".
	SessionErrors metric.Int64Counter

	// Reconnects counts reconnect attempts after an unexpected disconnect.
	Reconnects metric.Int64Counter

	// StateTransitions counts connection state changes. Use with attribute
	// "state".
	StateTransitions metric.Int64Counter

	// AnalyzerUpdates counts band level recomputations.
	AnalyzerUpdates metric.Int64Counter
}

// latencyBuckets are histogram boundaries in seconds for REST round trips.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10,
}

// NewMetrics creates every instrument on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SessionCreateDuration, err = m.Float64Histogram("callbar.session.create.duration",
		metric.WithDescription("Latency of the create-session request."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SessionErrors, err = m.Int64Counter("callbar.session.errors",
		metric.WithDescription("Failed calls by kind."),
	); err != nil {
		return nil, err
	}
	if met.Reconnects, err = m.Int64Counter("callbar.reconnects",
		metric.WithDescription("Reconnect attempts after a dropped connection."),
	); err != nil {
		return nil, err
	}
	if met.StateTransitions, err = m.Int64Counter("callbar.state.transitions",
		metric.WithDescription("Connection state changes by target state."),
	); err != nil {
		return nil, err
	}
	if met.AnalyzerUpdates, err = m.Int64Counter("callbar.analyzer.updates",
		metric.WithDescription("Band level updates computed from agent audio."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns a process-wide [Metrics] built on the global meter
// provider. Call it after [InitProvider] so the instruments bind to the
// exporter.
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

// RecordSessionCreate records the latency of one create-session request.
func (m *Metrics) RecordSessionCreate(ctx context.Context, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.SessionCreateDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordError counts a failure of the given kind.
func (m *Metrics) RecordError(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.SessionErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordReconnect counts one reconnect attempt.
func (m *Metrics) RecordReconnect(ctx context.Context, attempt int) {
	if m == nil {
		return
	}
	m.Reconnects.Add(ctx, 1, metric.WithAttributes(attribute.Int("attempt", attempt)))
}

// RecordTransition counts a change into state.
func (m *Metrics) RecordTransition(ctx context.Context, state string) {
	if m == nil {
		return
	}
	m.StateTransitions.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}

// RecordAnalyzerUpdate counts one band level update.
func (m *Metrics) RecordAnalyzerUpdate(ctx context.Context) {
	if m == nil {
		return
	}
	m.AnalyzerUpdates.Add(ctx, 1)
}
