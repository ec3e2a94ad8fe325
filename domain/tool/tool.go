package tool

import (
	"context"
	"encoding/json"
)

// Tool is a named capability exposed to the assistant.
type Tool interface {
	// Name returns the identifier the client calls the tool by.
	Name() string

	// Description returns the text shown to the client.
	Description() string

	// InputSchema returns the JSON Schema of the tool arguments.
	InputSchema() Schema

	// Annotations returns the tool's behavioral hints.
	Annotations() Annotations

	// Execute runs the tool with raw JSON arguments.
	Execute(ctx context.Context, input json.RawMessage) (Result, error)
}

// Handler is the function signature for tool execution.
type Handler func(ctx context.Context, input json.RawMessage) (Result, error)

// Definition is the Tool produced by Builder.
type Definition struct {
	name        string
	description string
	inputSchema Schema
	annotations Annotations
	handler     Handler
}

// Name returns the tool name.
func (d *Definition) Name() string {
	return d.name
}

// Description returns the tool description.
func (d *Definition) Description() string {
	return d.description
}

// InputSchema returns the input schema.
func (d *Definition) InputSchema() Schema {
	return d.inputSchema
}

// Annotations returns the tool annotations.
func (d *Definition) Annotations() Annotations {
	return d.annotations
}

// Execute runs the tool handler.
func (d *Definition) Execute(ctx context.Context, input json.RawMessage) (Result, error) {
	if d.handler == nil {
		return Result{}, ErrNoHandler
	}
	return d.handler(ctx, input)
}

// Builder provides a fluent API for constructing tools.
type Builder struct {
	def *Definition
}

// NewBuilder creates a builder for a tool with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{
		def: &Definition{
			name:        name,
			inputSchema: EmptySchema(),
		},
	}
}

// WithDescription sets the tool description.
func (b *Builder) WithDescription(desc string) *Builder {
	b.def.description = desc
	return b
}

// WithInputSchema sets the input schema.
func (b *Builder) WithInputSchema(schema Schema) *Builder {
	b.def.inputSchema = schema
	return b
}

// WithAnnotations replaces the tool annotations.
func (b *Builder) WithAnnotations(annotations Annotations) *Builder {
	b.def.annotations = annotations
	return b
}

// ReadOnly marks the tool as free of side effects.
func (b *Builder) ReadOnly() *Builder {
	b.def.annotations.ReadOnly = true
	b.def.annotations.Destructive = false
	return b
}

// OpenWorld marks the tool as reaching systems outside the server.
func (b *Builder) OpenWorld() *Builder {
	b.def.annotations.OpenWorld = true
	return b
}

// InCategory sets the tool category.
func (b *Builder) InCategory(c Category) *Builder {
	b.def.annotations.Category = c
	return b
}

// WithHandler sets the tool handler function.
func (b *Builder) WithHandler(handler Handler) *Builder {
	b.def.handler = handler
	return b
}

// Build constructs the tool definition.
func (b *Builder) Build() (Tool, error) {
	if b.def.name == "" {
		return nil, ErrEmptyName
	}
	if b.def.handler == nil {
		return nil, ErrNoHandler
	}
	return b.def, nil
}

// MustBuild constructs the tool definition or panics on error.
func (b *Builder) MustBuild() Tool {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}
