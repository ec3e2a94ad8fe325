package observability

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ErrUnknownExporter indicates an unsupported exporter type.
var ErrUnknownExporter = errors.New("unknown trace exporter type")

// Provider owns the tracer and meter providers for the process. It does not
// install itself as the global otel provider; components receive its tracer
// and meter explicitly.
type Provider struct {
	config         Config
	tracerProvider trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	shutdownFuncs  []func(context.Context) error
}

// New creates a new observability provider.
func New(opts ...Option) (*Provider, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Provider{config: cfg}

	if err := p.setupTracing(); err != nil {
		return nil, err
	}
	p.setupMetrics()

	return p, nil
}

func (p *Provider) resource() *resource.Resource {
	// Not merged with resource.Default() to avoid schema URL conflicts.
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(p.config.ServiceName),
		semconv.ServiceVersion(p.config.ServiceVersion),
	)
}

// setupTracing initializes the tracing infrastructure.
func (p *Provider) setupTracing() error {
	ctx := context.Background()

	var exporter sdktrace.SpanExporter
	switch p.config.Exporter {
	case ExporterOTLP:
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(p.config.Endpoint),
		}
		if p.config.Insecure {
			opts = append(opts,
				otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
				otlptracegrpc.WithInsecure(),
			)
		}
		exp, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return fmt.Errorf("create otlp exporter: %w", err)
		}
		exporter = exp

	case ExporterStdout:
		exp, err := stdouttrace.New(stdouttrace.WithWriter(p.config.Output))
		if err != nil {
			return fmt.Errorf("create stdout exporter: %w", err)
		}
		exporter = exp

	case ExporterNoop, "":
		p.tracerProvider = noop.NewTracerProvider()
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnknownExporter, p.config.Exporter)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(p.config.BatchTimeout)),
		sdktrace.WithResource(p.resource()),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	p.tracerProvider = tp
	p.shutdownFuncs = append(p.shutdownFuncs, tp.Shutdown)
	return nil
}

// setupMetrics initializes the meter provider.
func (p *Provider) setupMetrics() {
	opts := []sdkmetric.Option{sdkmetric.WithResource(p.resource())}
	if p.config.MetricReader != nil {
		opts = append(opts, sdkmetric.WithReader(p.config.MetricReader))
	}
	p.meterProvider = sdkmetric.NewMeterProvider(opts...)
	p.shutdownFuncs = append(p.shutdownFuncs, p.meterProvider.Shutdown)
}

// Tracer returns the service tracer.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracerProvider.Tracer(p.config.ServiceName)
}

// Meter returns the service meter.
func (p *Provider) Meter() metric.Meter {
	return p.meterProvider.Meter(p.config.ServiceName)
}

// Shutdown flushes and stops the exporters.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range p.shutdownFuncs {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewNoopProvider creates a provider that records nothing.
func NewNoopProvider() *Provider {
	p, _ := New()
	return p
}
