package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Observability owns the OpenTelemetry meter and tracer providers. A zero
// value is a usable no-op recorder.
type Observability struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *metric.MeterProvider
	meter          otelmetric.Meter
	chatCounter    otelmetric.Int64Counter
	chatDuration   otelmetric.Float64Histogram
}

// New installs the global tracer provider and W3C trace-context propagator,
// then the prometheus-backed meter provider. Spans carry real trace ids so
// logs and outbound calls can be correlated.
func New(serviceName string, opts ...sdktrace.TracerProviderOption) *Observability {
	tracerProvider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{tracerProvider: tracerProvider}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	chatCounter, _ := meter.Int64Counter(
		"chat.processed",
		otelmetric.WithDescription("Number of chat requests processed"),
	)

	chatDuration, _ := meter.Float64Histogram(
		"chat.duration",
		otelmetric.WithDescription("Chat request processing duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		tracerProvider: tracerProvider,
		meterProvider:  provider,
		meter:          meter,
		chatCounter:    chatCounter,
		chatDuration:   chatDuration,
	}
}

func (o *Observability) RecordChatProcessed(ctx context.Context, outcome string) {
	if o == nil || o.chatCounter == nil {
		return
	}
	o.chatCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

func (o *Observability) RecordChatDuration(ctx context.Context, duration time.Duration, outcome string) {
	if o == nil || o.chatDuration == nil {
		return
	}
	o.chatDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

func (o *Observability) Shutdown() {
	if o == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
}
