// Package config provides the server configuration model.
//
// A Config is built once at startup and passed explicitly to the components
// that need it. Nothing reads the environment after load.
package config

import (
	"time"

	"github.com/felixgeelhaar/dbmcp/domain/query"
)

// Config is the complete server configuration.
type Config struct {
	Postgres     PostgresConfig     `yaml:"postgres"`
	MySQL        MySQLConfig        `yaml:"mysql"`
	MongoDB      MongoConfig        `yaml:"mongodb"`
	LLM          LLMConfig          `yaml:"llm"`
	Notification NotificationConfig `yaml:"notification"`
	Query        QueryConfig        `yaml:"query"`
	Activity     ActivityConfig     `yaml:"activity"`
	Logging      LoggingConfig      `yaml:"logging"`
	Tracing      TracingConfig      `yaml:"tracing"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	// Schema scopes table listing.
	Schema string `yaml:"schema"`
}

// Configured reports whether any connection setting was provided.
func (c PostgresConfig) Configured() bool {
	return c.Host != "" || c.Database != "" || c.User != "" || c.Password != ""
}

// MySQLConfig holds MySQL connection settings.
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// Configured reports whether any connection setting was provided.
func (c MySQLConfig) Configured() bool {
	return c.Host != "" || c.Database != "" || c.User != "" || c.Password != ""
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// Configured reports whether any connection setting was provided.
func (c MongoConfig) Configured() bool {
	return c.URI != "" || c.Database != ""
}

// LLMConfig holds the chat completion provider settings.
type LLMConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Configured reports whether an API key is present.
func (c LLMConfig) Configured() bool {
	return c.APIKey != ""
}

// NotificationConfig holds the notification gateway settings.
type NotificationConfig struct {
	BaseURL      string        `yaml:"base_url"`
	EmailPath    string        `yaml:"email_path"`
	SMSPath      string        `yaml:"sms_path"`
	PushPath     string        `yaml:"push_path"`
	PhonePattern string        `yaml:"phone_pattern"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Configured reports whether a gateway URL is present.
func (c NotificationConfig) Configured() bool {
	return c.BaseURL != ""
}

// QueryConfig bounds query execution.
type QueryConfig struct {
	MaxRows        int           `yaml:"max_rows"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// ActivityConfig locates the activity log.
type ActivityConfig struct {
	// DSN is a SQLite data source name. Empty keeps the log in memory.
	DSN string `yaml:"dsn"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig selects the trace exporter.
type TracingConfig struct {
	// Exporter is one of noop, stdout or otlp.
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// Defaults returns a configuration with every default applied and no
// backend configured.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{Port: 5432, SSLMode: "prefer", Schema: "public"},
		MySQL:    MySQLConfig{Port: 3306},
		LLM: LLMConfig{
			Model:   "gpt-4o-mini",
			BaseURL: "https://api.openai.com/v1",
			Timeout: 60 * time.Second,
		},
		Notification: NotificationConfig{
			EmailPath:    "/send-email-2",
			SMSPath:      "/send-sms-2",
			PushPath:     "/push",
			PhonePattern: `^(\+234|0)[789][01]\d{8}$`,
			Timeout:      15 * time.Second,
		},
		Query:    QueryConfig{MaxRows: 500, ConnectTimeout: 10 * time.Second},
		Activity: ActivityConfig{DSN: "file:dbmcp-activity.db"},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
		Tracing:  TracingConfig{Exporter: "noop", Insecure: true},
	}
}

// Backends returns the configured database backends in a stable order.
func (c Config) Backends() []query.Backend {
	var out []query.Backend
	if c.Postgres.Configured() {
		out = append(out, query.Postgres)
	}
	if c.MySQL.Configured() {
		out = append(out, query.MySQL)
	}
	if c.MongoDB.Configured() {
		out = append(out, query.MongoDB)
	}
	return out
}
