// Package application provides the tool dispatcher, the single entry point
// for every tool call.
package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/felixgeelhaar/dbmcp/domain/guard"
	"github.com/felixgeelhaar/dbmcp/domain/query"
	"github.com/felixgeelhaar/dbmcp/domain/tool"
	"github.com/felixgeelhaar/dbmcp/infrastructure/logging"
	"github.com/felixgeelhaar/dbmcp/infrastructure/observability"
)

// Request is one tool call as received from the client.
type Request struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Dispatcher resolves tools, applies the read-only guard to database
// operations and runs them. It implements query.Runner.
type Dispatcher struct {
	registry    tool.Registry
	connectors  query.Resolver
	logger      *bolt.Logger
	tracer      trace.Tracer
	instruments *observability.Instruments
	newID       func() string
}

// DispatcherConfig contains the dispatcher collaborators.
type DispatcherConfig struct {
	Registry   tool.Registry
	Connectors query.Resolver

	// Logger defaults to a discarding logger.
	Logger *bolt.Logger

	// Tracer defaults to a no-op tracer.
	Tracer trace.Tracer

	// Instruments may be nil.
	Instruments *observability.Instruments
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(config DispatcherConfig) (*Dispatcher, error) {
	if config.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if config.Connectors == nil {
		return nil, errors.New("connectors are required")
	}

	d := &Dispatcher{
		registry:    config.Registry,
		connectors:  config.Connectors,
		logger:      logging.OrDiscard(config.Logger),
		tracer:      config.Tracer,
		instruments: config.Instruments,
		newID:       uuid.NewString,
	}
	if d.tracer == nil {
		d.tracer = noop.NewTracerProvider().Tracer("dbmcp")
	}
	return d, nil
}

type invocationKey struct{}

// InvocationID returns the id the dispatcher assigned to the current call.
func InvocationID(ctx context.Context) string {
	id, _ := ctx.Value(invocationKey{}).(string)
	return id
}

// Dispatch runs one tool call. Failures concern only this call.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (tool.Result, error) {
	start := time.Now()
	id := d.newID()
	ctx = context.WithValue(ctx, invocationKey{}, id)

	ctx, span := d.tracer.Start(ctx, "dispatch "+req.Name, trace.WithAttributes(
		observability.AttrTool.String(req.Name),
		observability.AttrInvocationID.String(id),
	))

	result, err := d.dispatch(ctx, req)
	elapsed := time.Since(start)

	outcome := classify(err)
	span.SetAttributes(observability.AttrOutcome.String(outcome))
	observability.EndSpan(span, err)
	d.instruments.RecordDispatch(ctx, req.Name, outcome, float64(elapsed.Microseconds())/1000)

	fields := []logging.Field{
		logging.ToolName(req.Name),
		logging.InvocationID(id),
		logging.Duration(elapsed),
	}
	switch outcome {
	case observability.OutcomeOK:
		logging.NewEvent(d.logger.Info()).With(fields...).Msg("tool call completed")
	case observability.OutcomeRejected:
		var rej *guard.RejectionError
		if errors.As(err, &rej) {
			fields = append(fields, logging.Backend(rej.Backend), logging.Reason(rej.Reason))
		}
		logging.NewEvent(d.logger.Warn()).With(fields...).Msg("query rejected")
	default:
		logging.NewEvent(d.logger.Error()).With(append(fields, logging.ErrorField(err))...).Msg("tool call failed")
	}

	if err != nil {
		return tool.Result{}, err
	}
	return result.WithDuration(elapsed), nil
}

func (d *Dispatcher) dispatch(ctx context.Context, req Request) (tool.Result, error) {
	t, ok := d.registry.Get(req.Name)
	if !ok {
		return tool.Result{}, fmt.Errorf("%w: %s", tool.ErrUnknownTool, req.Name)
	}

	describer, ok := t.(query.Describer)
	if !ok {
		return t.Execute(ctx, req.Arguments)
	}

	desc, err := describer.Describe(req.Arguments)
	if err != nil {
		return tool.Result{}, err
	}
	res, err := d.Run(ctx, desc)
	if err != nil {
		return tool.Result{}, err
	}
	return tool.JSONResult(res)
}

// Run implements query.Runner. A rejected descriptor never reaches a
// connector.
func (d *Dispatcher) Run(ctx context.Context, desc query.Descriptor) (query.Result, error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(observability.AttrBackend.String(desc.Backend.String()))

	if err := guard.Check(desc); err != nil {
		var rej *guard.RejectionError
		if errors.As(err, &rej) {
			span.SetAttributes(observability.AttrReason.String(rej.Reason))
		}
		d.instruments.RecordRejection(ctx, desc.Backend.String())
		return query.Result{}, err
	}

	c, err := d.connectors.Connector(desc.Backend)
	if err != nil {
		return query.Result{}, err
	}
	res, err := query.WithHandle(ctx, c, func(h query.Handle) (query.Result, error) {
		return h.Execute(ctx, desc)
	})
	if err != nil {
		return query.Result{}, err
	}

	span.SetAttributes(observability.AttrRows.Int(res.Count))
	logging.NewEvent(d.logger.Debug()).With(
		logging.InvocationID(InvocationID(ctx)),
		logging.Backend(desc.Backend),
		logging.Rows(res.Count),
	).Msg("query executed")
	return res, nil
}

// ListTables implements query.Runner.
func (d *Dispatcher) ListTables(ctx context.Context, backend query.Backend) ([]string, error) {
	c, err := d.connectors.Connector(backend)
	if err != nil {
		return nil, err
	}
	return query.WithHandle(ctx, c, func(h query.Handle) ([]string, error) {
		return h.ListTables(ctx)
	})
}

// Tools returns the registered tools sorted by name.
func (d *Dispatcher) Tools() []tool.Tool {
	return d.registry.List()
}

func classify(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeOK
	case errors.Is(err, guard.ErrRejected):
		return observability.OutcomeRejected
	case errors.Is(err, tool.ErrUnknownTool):
		return observability.OutcomeUnknown
	default:
		return observability.OutcomeError
	}
}
