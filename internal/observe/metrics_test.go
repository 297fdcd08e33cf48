package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func counterTotal(t *testing.T, rm metricdata.ResourceMetrics, name string, attr attribute.KeyValue) int64 {
	t.Helper()
	m := findMetric(rm, name)
	if m == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q: expected Sum[int64], got %T", name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if attr.Key != "" {
			v, ok := dp.Attributes.Value(attr.Key)
			if !ok || v.Emit() != attr.Value.Emit() {
				continue
			}
		}
		total += dp.Value
	}
	return total
}

func TestRecordSessionCreate(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSessionCreate(ctx, 120*time.Millisecond, nil)
	m.RecordSessionCreate(ctx, 2*time.Second, errors.New("boom"))

	rm := collect(t, reader)
	hist := findMetric(rm, "callbar.session.create.duration")
	if hist == nil {
		t.Fatal("histogram not found")
	}
	data, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", hist.Data)
	}
	var count uint64
	for _, dp := range data.DataPoints {
		count += dp.Count
	}
	if count != 2 {
		t.Fatalf("expected 2 observations, got %d", count)
	}
}

func TestCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordError(ctx, KindSession)
	m.RecordError(ctx, KindSession)
	m.RecordError(ctx, KindTransport)
	m.RecordReconnect(ctx, 1)
	m.RecordReconnect(ctx, 2)
	m.RecordTransition(ctx, "connecting")
	m.RecordTransition(ctx, "connected")
	m.RecordTransition(ctx, "connecting")
	for range 5 {
		m.RecordAnalyzerUpdate(ctx)
	}

	rm := collect(t, reader)
	if got := counterTotal(t, rm, "callbar.session.errors", attribute.String("kind", KindSession)); got != 2 {
		t.Fatalf("session errors: expected 2, got %d", got)
	}
	if got := counterTotal(t, rm, "callbar.session.errors", attribute.String("kind", KindTransport)); got != 1 {
		t.Fatalf("transport errors: expected 1, got %d", got)
	}
	if got := counterTotal(t, rm, "callbar.reconnects", attribute.KeyValue{}); got != 2 {
		t.Fatalf("reconnects: expected 2, got %d", got)
	}
	if got := counterTotal(t, rm, "callbar.state.transitions", attribute.String("state", "connecting")); got != 2 {
		t.Fatalf("connecting transitions: expected 2, got %d", got)
	}
	if got := counterTotal(t, rm, "callbar.analyzer.updates", attribute.KeyValue{}); got != 5 {
		t.Fatalf("analyzer updates: expected 5, got %d", got)
	}
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordSessionCreate(ctx, time.Second, nil)
	m.RecordError(ctx, KindConfig)
	m.RecordReconnect(ctx, 1)
	m.RecordTransition(ctx, "idle")
	m.RecordAnalyzerUpdate(ctx)
}
