// Package dbmcp provides the version information for dbmcp.
package dbmcp

// Version is the current version of dbmcp.
const Version = "0.1.0"

// ServerName is the name advertised to MCP clients.
const ServerName = "dbmcp"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
