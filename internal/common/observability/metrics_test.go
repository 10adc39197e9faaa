package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newWithManualReader(t *testing.T) (*Observability, *metric.ManualReader) {
	t.Helper()
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	meter := provider.Meter("test")

	counter, err := meter.Int64Counter("chat.processed")
	require.NoError(t, err)
	hist, err := meter.Float64Histogram("chat.duration")
	require.NoError(t, err)

	return &Observability{meterProvider: provider, meter: meter, chatCounter: counter, chatDuration: hist}, reader
}

func TestObservability_Records(t *testing.T) {
	obs, reader := newWithManualReader(t)
	defer obs.Shutdown()

	ctx := context.Background()
	obs.RecordChatProcessed(ctx, "ok")
	obs.RecordChatProcessed(ctx, "ok")
	obs.RecordChatDuration(ctx, 120*time.Millisecond, "ok")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	names := map[string]metricdata.Metrics{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		names[m.Name] = m
	}

	sum, ok := names["chat.processed"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)

	hist, ok := names["chat.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}

func TestObservability_ZeroValueIsNoOp(t *testing.T) {
	var nilObs *Observability
	assert.NotPanics(t, func() {
		nilObs.RecordChatProcessed(context.Background(), "ok")
		(&Observability{}).RecordChatDuration(context.Background(), time.Second, "ok")
		(&Observability{}).Shutdown()
	})
}

func TestNew_InstallsTracerProvider(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	obs := New("obs-test", sdktrace.WithSpanProcessor(recorder))
	defer obs.Shutdown()

	ctx, span := otel.Tracer("test").Start(context.Background(), "unit")
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	span.End()

	require.Len(t, recorder.Ended(), 1)
	traceID := recorder.Ended()[0].SpanContext().TraceID()
	assert.True(t, traceID.IsValid())
	assert.Contains(t, carrier.Get("traceparent"), traceID.String())
}
