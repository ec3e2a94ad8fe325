package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared by spans and metrics.
const (
	AttrTool         = attribute.Key("dbmcp.tool")
	AttrBackend      = attribute.Key("dbmcp.backend")
	AttrInvocationID = attribute.Key("dbmcp.invocation_id")
	AttrOutcome      = attribute.Key("dbmcp.outcome")
	AttrReason       = attribute.Key("dbmcp.reject_reason")
	AttrRows         = attribute.Key("dbmcp.rows")
)

// Outcome values recorded on dispatch spans and counters.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
	OutcomeUnknown  = "unknown_tool"
)

// EndSpan records err on the span, sets its status and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Instruments are the counters the dispatcher records.
type Instruments struct {
	// DispatchCalls counts every dispatched tool call by tool and outcome.
	DispatchCalls metric.Int64Counter

	// GuardRejections counts descriptors refused by the read-only guard.
	GuardRejections metric.Int64Counter

	// DispatchDuration records call latency in milliseconds.
	DispatchDuration metric.Float64Histogram
}

// NewInstruments creates the dispatcher instruments on meter.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	calls, err := meter.Int64Counter("dbmcp.dispatch.calls",
		metric.WithDescription("Tool calls dispatched"),
		metric.WithUnit("{call}"))
	if err != nil {
		return nil, err
	}
	rejections, err := meter.Int64Counter("dbmcp.guard.rejections",
		metric.WithDescription("Queries refused by the read-only guard"),
		metric.WithUnit("{query}"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("dbmcp.dispatch.duration",
		metric.WithDescription("Tool call latency"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	return &Instruments{
		DispatchCalls:    calls,
		GuardRejections:  rejections,
		DispatchDuration: duration,
	}, nil
}

// RecordDispatch adds one call with its outcome and latency.
func (i *Instruments) RecordDispatch(ctx context.Context, tool, outcome string, ms float64) {
	if i == nil {
		return
	}
	attrs := metric.WithAttributes(AttrTool.String(tool), AttrOutcome.String(outcome))
	i.DispatchCalls.Add(ctx, 1, attrs)
	i.DispatchDuration.Record(ctx, ms, metric.WithAttributes(AttrTool.String(tool)))
}

// RecordRejection adds one guard rejection for backend.
func (i *Instruments) RecordRejection(ctx context.Context, backend string) {
	if i == nil {
		return
	}
	i.GuardRejections.Add(ctx, 1, metric.WithAttributes(AttrBackend.String(backend)))
}
