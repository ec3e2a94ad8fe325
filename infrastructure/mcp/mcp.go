// Package mcp exposes the dispatcher's tools over the Model Context
// Protocol using github.com/felixgeelhaar/mcp-go.
package mcp

import (
	mcpgo "github.com/felixgeelhaar/mcp-go"
)

// Re-export core types from mcp-go for convenience.
type (
	// ServerInfo contains MCP server metadata.
	ServerInfo = mcpgo.ServerInfo

	// ServeOption configures server behavior.
	ServeOption = mcpgo.ServeOption

	// HTTPOption configures HTTP transport.
	HTTPOption = mcpgo.HTTPOption
)

// Middleware constructors applied to every server.
var (
	Recover   = mcpgo.Recover
	RequestID = mcpgo.RequestID
)
