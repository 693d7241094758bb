package config

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/mpapenbr/redlight-race-go/log"
	"github.com/mpapenbr/redlight-race-go/version"
)

const stdoutEndpoint = "stdout"

type Telemetry struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *trace.TracerProvider
}

type TelemetryOption func(*telemetryOptions)

type telemetryOptions struct {
	endpoint string
	writer   io.Writer
	interval time.Duration
}

func WithEndpoint(endpoint string) TelemetryOption {
	return func(o *telemetryOptions) {
		o.endpoint = endpoint
	}
}

// WithWriter sets the destination of the stdout exporters
func WithWriter(w io.Writer) TelemetryOption {
	return func(o *telemetryOptions) {
		o.writer = w
	}
}

func WithExportInterval(d time.Duration) TelemetryOption {
	return func(o *telemetryOptions) {
		o.interval = d
	}
}

// SetupTelemetry installs global meter and tracer providers.
// An empty endpoint or "stdout" exports to a writer, anything else is treated as an
// OTLP gRPC endpoint.
func SetupTelemetry(ctx context.Context, opts ...TelemetryOption) (*Telemetry, error) {
	o := &telemetryOptions{
		endpoint: TelemetryEndpoint,
		writer:   os.Stderr,
		interval: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	res := resource.NewSchemaless(
		attribute.String("service.name", "rlr"),
		attribute.String("service.version", version.Version),
	)

	metricExporter, err := newMetricExporter(ctx, o)
	if err != nil {
		return nil, err
	}
	traceExporter, err := newTraceExporter(ctx, o)
	if err != nil {
		return nil, err
	}

	ret := &Telemetry{
		meterProvider: metric.NewMeterProvider(
			metric.WithResource(res),
			metric.WithReader(metric.NewPeriodicReader(metricExporter,
				metric.WithInterval(o.interval))),
		),
		tracerProvider: trace.NewTracerProvider(
			trace.WithResource(res),
			trace.WithBatcher(traceExporter),
		),
	}
	otel.SetMeterProvider(ret.meterProvider)
	otel.SetTracerProvider(ret.tracerProvider)
	log.Debug("telemetry enabled", log.String("endpoint", o.endpoint))
	return ret, nil
}

func newMetricExporter(ctx context.Context, o *telemetryOptions) (metric.Exporter, error) {
	if o.endpoint == "" || o.endpoint == stdoutEndpoint {
		return stdoutmetric.New(stdoutmetric.WithWriter(o.writer))
	}
	return otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(o.endpoint),
		otlpmetricgrpc.WithInsecure())
}

func newTraceExporter(ctx context.Context, o *telemetryOptions) (trace.SpanExporter, error) {
	if o.endpoint == "" || o.endpoint == stdoutEndpoint {
		return stdouttrace.New(stdouttrace.WithWriter(o.writer))
	}
	return otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(o.endpoint),
		otlptracegrpc.WithInsecure())
}

// Shutdown flushes pending data and stops the providers
func (t *Telemetry) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := errors.Join(
		t.tracerProvider.Shutdown(ctx),
		t.meterProvider.Shutdown(ctx),
	)
	if err != nil {
		log.Warn("telemetry shutdown", log.ErrorField(err))
	}
}
