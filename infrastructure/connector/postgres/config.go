// Package postgres provides the PostgreSQL connector.
package postgres

import (
	"fmt"
	"strings"
	"time"

	domainconfig "github.com/felixgeelhaar/dbmcp/domain/config"
)

// Config holds PostgreSQL connection settings.
type Config struct {
	Host           string
	Port           int
	Database       string
	User           string
	Password       string
	SSLMode        string
	Schema         string
	ConnectTimeout time.Duration
	MaxRows        int
}

// FromConfig adapts the server configuration.
func FromConfig(c domainconfig.Config) Config {
	return Config{
		Host:           c.Postgres.Host,
		Port:           c.Postgres.Port,
		Database:       c.Postgres.Database,
		User:           c.Postgres.User,
		Password:       c.Postgres.Password,
		SSLMode:        c.Postgres.SSLMode,
		Schema:         c.Postgres.Schema,
		ConnectTimeout: c.Query.ConnectTimeout,
		MaxRows:        c.Query.MaxRows,
	}
}

// ConnectionString returns a keyword/value connection string.
func (c Config) ConnectionString() string {
	parts := []string{
		"host=" + quote(c.Host),
		fmt.Sprintf("port=%d", c.Port),
		"dbname=" + quote(c.Database),
		"user=" + quote(c.User),
		"password=" + quote(c.Password),
		"sslmode=" + quote(c.SSLMode),
	}
	if secs := int(c.ConnectTimeout / time.Second); secs > 0 {
		parts = append(parts, fmt.Sprintf("connect_timeout=%d", secs))
	}
	return strings.Join(parts, " ")
}

// quote escapes a connection string value when it needs it.
func quote(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\=`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
