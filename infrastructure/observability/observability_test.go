package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Exporter != ExporterNoop {
		t.Errorf("Exporter = %s, want noop", cfg.Exporter)
	}
	if cfg.ServiceName != "dbmcp" {
		t.Errorf("ServiceName = %s", cfg.ServiceName)
	}
}

func TestNew_UnknownExporter(t *testing.T) {
	t.Parallel()

	_, err := New(WithExporter("zipkin", "", false))
	if !errors.Is(err, ErrUnknownExporter) {
		t.Errorf("New() error = %v, want ErrUnknownExporter", err)
	}
}

func TestNoopProvider(t *testing.T) {
	t.Parallel()

	p := NewNoopProvider()
	_, span := p.Tracer().Start(context.Background(), "op")
	EndSpan(span, errors.New("boom"))

	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestStdoutExporter_WritesSpans(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	p, err := New(WithService("dbmcp-test", "1.0.0"), WithExporter(ExporterStdout, "", false), WithOutput(buf))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, span := p.Tracer().Start(context.Background(), "dispatch run_query")
	span.SetAttributes(AttrTool.String("run_query"))
	EndSpan(span, nil)

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("dispatch run_query")) {
		t.Errorf("span not exported: %s", buf.String())
	}
}

func TestInstruments_Record(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	p, err := New(WithMetricReader(reader))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	inst, err := NewInstruments(p.Meter())
	if err != nil {
		t.Fatalf("NewInstruments() error = %v", err)
	}

	ctx := context.Background()
	inst.RecordDispatch(ctx, "run_query", OutcomeOK, 12)
	inst.RecordDispatch(ctx, "run_query", OutcomeRejected, 1)
	inst.RecordRejection(ctx, "postgres")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					totals[m.Name] += dp.Value
				}
			}
		}
	}
	if totals["dbmcp.dispatch.calls"] != 2 {
		t.Errorf("dispatch.calls = %d, want 2", totals["dbmcp.dispatch.calls"])
	}
	if totals["dbmcp.guard.rejections"] != 1 {
		t.Errorf("guard.rejections = %d, want 1", totals["dbmcp.guard.rejections"])
	}
}

func TestInstruments_NilSafe(t *testing.T) {
	t.Parallel()

	var inst *Instruments
	inst.RecordDispatch(context.Background(), "x", OutcomeOK, 1)
	inst.RecordRejection(context.Background(), "mysql")
}
