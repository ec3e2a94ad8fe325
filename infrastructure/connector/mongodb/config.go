// Package mongodb provides the MongoDB connector.
package mongodb

import (
	"time"

	domainconfig "github.com/felixgeelhaar/dbmcp/domain/config"
)

// Config contains MongoDB connection configuration.
type Config struct {
	// URI is the MongoDB connection string.
	URI string

	// Database is the database name.
	Database string

	// ConnectTimeout bounds connection and server selection.
	ConnectTimeout time.Duration

	// MaxRows caps returned documents.
	MaxRows int
}

// FromConfig adapts the server configuration.
func FromConfig(c domainconfig.Config) Config {
	return Config{
		URI:            c.MongoDB.URI,
		Database:       c.MongoDB.Database,
		ConnectTimeout: c.Query.ConnectTimeout,
		MaxRows:        c.Query.MaxRows,
	}
}
