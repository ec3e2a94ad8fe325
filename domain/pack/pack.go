// Package pack groups related tools so they can be registered together.
package pack

import (
	"fmt"

	"github.com/felixgeelhaar/dbmcp/domain/tool"
)

// Pack is a named collection of tools.
type Pack struct {
	// Name is the unique identifier for the pack.
	Name string

	// Description explains what the pack provides.
	Description string

	// Tools is the collection of tools in this pack.
	Tools []tool.Tool
}

// ToolNames returns the names of all tools in the pack.
func (p *Pack) ToolNames() []string {
	names := make([]string, len(p.Tools))
	for i, t := range p.Tools {
		names[i] = t.Name()
	}
	return names
}

// GetTool returns a tool by name from the pack.
func (p *Pack) GetTool(name string) (tool.Tool, bool) {
	for _, t := range p.Tools {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// Builder provides a fluent API for constructing packs.
type Builder struct {
	pack *Pack
}

// NewBuilder creates a new pack builder.
func NewBuilder(name string) *Builder {
	return &Builder{pack: &Pack{Name: name}}
}

// WithDescription sets the pack description.
func (b *Builder) WithDescription(desc string) *Builder {
	b.pack.Description = desc
	return b
}

// AddTools adds tools to the pack.
func (b *Builder) AddTools(tools ...tool.Tool) *Builder {
	b.pack.Tools = append(b.pack.Tools, tools...)
	return b
}

// Build returns the constructed pack.
func (b *Builder) Build() *Pack {
	return b.pack
}

// Install registers the tools of every pack. It stops at the first tool
// the registry refuses.
func Install(reg tool.Registry, packs ...*Pack) error {
	for _, p := range packs {
		if p == nil || p.Name == "" {
			return ErrInvalidPack
		}
		for _, t := range p.Tools {
			if err := reg.Register(t); err != nil {
				return fmt.Errorf("install pack %s: %w", p.Name, err)
			}
		}
	}
	return nil
}
