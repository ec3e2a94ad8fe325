// Package observability provides OpenTelemetry tracing and metrics.
package observability

import (
	"io"
	"os"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// ExporterType specifies the trace exporter.
type ExporterType string

const (
	// ExporterOTLP exports to an OTLP gRPC endpoint.
	ExporterOTLP ExporterType = "otlp"

	// ExporterStdout writes spans as JSON to the configured writer.
	ExporterStdout ExporterType = "stdout"

	// ExporterNoop disables export.
	ExporterNoop ExporterType = "noop"
)

// Config configures the observability infrastructure.
type Config struct {
	// ServiceName is the name of the service for telemetry.
	ServiceName string

	// ServiceVersion is the version of the service.
	ServiceVersion string

	// Exporter selects where spans go.
	Exporter ExporterType

	// Endpoint is the OTLP endpoint (e.g., "localhost:4317").
	Endpoint string

	// Insecure disables TLS for the OTLP connection.
	Insecure bool

	// Output receives stdout-exported spans. Defaults to stderr because
	// stdout carries the MCP stream.
	Output io.Writer

	// BatchTimeout is the span batch export timeout.
	BatchTimeout time.Duration

	// MetricReader collects metrics. Nil leaves metrics unexported.
	MetricReader sdkmetric.Reader
}

// DefaultConfig returns a no-op configuration.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "dbmcp",
		ServiceVersion: "0.0.0",
		Exporter:       ExporterNoop,
		Output:         os.Stderr,
		BatchTimeout:   5 * time.Second,
	}
}

// Option configures the observability infrastructure.
type Option func(*Config)

// WithService sets the service name and version.
func WithService(name, version string) Option {
	return func(c *Config) {
		c.ServiceName = name
		c.ServiceVersion = version
	}
}

// WithExporter selects the trace exporter and its endpoint.
func WithExporter(exporter ExporterType, endpoint string, insecure bool) Option {
	return func(c *Config) {
		c.Exporter = exporter
		c.Endpoint = endpoint
		c.Insecure = insecure
	}
}

// WithOutput sets the writer for the stdout exporter.
func WithOutput(w io.Writer) Option {
	return func(c *Config) {
		c.Output = w
	}
}

// WithMetricReader attaches a metric reader to the meter provider.
func WithMetricReader(r sdkmetric.Reader) Option {
	return func(c *Config) {
		c.MetricReader = r
	}
}
