// Package connector assembles the configured backend connectors.
package connector

import (
	"fmt"

	domainconfig "github.com/felixgeelhaar/dbmcp/domain/config"
	"github.com/felixgeelhaar/dbmcp/domain/query"
	"github.com/felixgeelhaar/dbmcp/infrastructure/connector/mongodb"
	"github.com/felixgeelhaar/dbmcp/infrastructure/connector/mysql"
	"github.com/felixgeelhaar/dbmcp/infrastructure/connector/postgres"
)

// Set holds one connector per configured backend. It is built once at
// startup and read concurrently afterwards.
type Set struct {
	connectors map[query.Backend]query.Connector
}

// NewSet creates a set from connectors. A later connector for the same
// backend replaces an earlier one.
func NewSet(connectors ...query.Connector) *Set {
	s := &Set{connectors: make(map[query.Backend]query.Connector, len(connectors))}
	for _, c := range connectors {
		s.connectors[c.Backend()] = c
	}
	return s
}

// FromConfig builds connectors for every configured backend.
func FromConfig(cfg domainconfig.Config) *Set {
	var connectors []query.Connector
	for _, b := range cfg.Backends() {
		switch b {
		case query.Postgres:
			connectors = append(connectors, postgres.New(postgres.FromConfig(cfg)))
		case query.MySQL:
			connectors = append(connectors, mysql.New(mysql.FromConfig(cfg)))
		case query.MongoDB:
			connectors = append(connectors, mongodb.New(mongodb.FromConfig(cfg)))
		}
	}
	return NewSet(connectors...)
}

// Connector implements query.Resolver.
func (s *Set) Connector(backend query.Backend) (query.Connector, error) {
	c, ok := s.connectors[backend]
	if !ok {
		return nil, fmt.Errorf("%w: %s", query.ErrBackendNotConfigured, backend)
	}
	return c, nil
}

// Backends returns the configured backends in canonical order.
func (s *Set) Backends() []query.Backend {
	var out []query.Backend
	for _, b := range query.Backends() {
		if _, ok := s.connectors[b]; ok {
			out = append(out, b)
		}
	}
	return out
}
