// Package config loads the server configuration from the environment, an
// optional .env file and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/dbmcp/domain/config"
)

// Loader builds a config.Config. Precedence, lowest first: defaults, the
// YAML file, the .env file, the process environment.
type Loader struct {
	// ConfigFile is an optional YAML file. Empty skips it.
	ConfigFile string

	// EnvFile is a dotenv file. A missing file is ignored unless
	// RequireEnvFile is set.
	EnvFile string

	// RequireEnvFile fails when EnvFile does not exist.
	RequireEnvFile bool

	// Lookup reads the process environment. Defaults to os.LookupEnv.
	Lookup LookupFunc

	// Validate enables configuration validation.
	Validate bool
}

// NewLoader creates a loader that reads ".env" if present and validates.
func NewLoader() *Loader {
	return &Loader{
		EnvFile:  ".env",
		Lookup:   os.LookupEnv,
		Validate: true,
	}
}

// LoaderOption configures the loader.
type LoaderOption func(*Loader)

// WithConfigFile sets the YAML configuration file.
func WithConfigFile(path string) LoaderOption {
	return func(l *Loader) {
		l.ConfigFile = path
	}
}

// WithEnvFile sets a dotenv file that must exist.
func WithEnvFile(path string) LoaderOption {
	return func(l *Loader) {
		l.EnvFile = path
		l.RequireEnvFile = path != ""
	}
}

// WithLookup replaces the environment lookup.
func WithLookup(lookup LookupFunc) LoaderOption {
	return func(l *Loader) {
		l.Lookup = lookup
	}
}

// WithValidation enables or disables configuration validation.
func WithValidation(enabled bool) LoaderOption {
	return func(l *Loader) {
		l.Validate = enabled
	}
}

// NewLoaderWithOptions creates a loader with the specified options.
func NewLoaderWithOptions(opts ...LoaderOption) *Loader {
	l := NewLoader()
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load builds and validates the configuration.
func (l *Loader) Load() (config.Config, error) {
	cfg := config.Defaults()

	lookup, err := l.lookup()
	if err != nil {
		return cfg, err
	}

	if l.ConfigFile != "" {
		if err := l.loadFile(&cfg, lookup); err != nil {
			return cfg, err
		}
	}

	if errs := applyEnv(&cfg, lookup); len(errs) > 0 {
		return cfg, errs
	}

	if l.Validate {
		if err := config.Validate(cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// lookup layers the process environment over the dotenv file.
func (l *Loader) lookup() (LookupFunc, error) {
	base := l.Lookup
	if base == nil {
		base = os.LookupEnv
	}
	if l.EnvFile == "" {
		return base, nil
	}

	values, err := godotenv.Read(l.EnvFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !l.RequireEnvFile {
			return base, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", l.EnvFile, err)
	}

	return func(key string) (string, bool) {
		if v, ok := base(key); ok {
			return v, true
		}
		v, ok := values[key]
		return v, ok
	}, nil
}

func (l *Loader) loadFile(cfg *config.Config, lookup LookupFunc) error {
	data, err := os.ReadFile(l.ConfigFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", config.ErrConfigNotFound, l.ConfigFile)
		}
		return fmt.Errorf("read config file: %w", err)
	}

	expander := &envExpander{lookup: lookup}
	expanded, err := expander.Expand(string(data))
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidFormat, err)
	}
	return nil
}

// binding maps one environment variable onto the configuration.
type binding struct {
	name  string
	apply func(c *config.Config, v string) error
}

var bindings = []binding{
	{"DB_HOST", setString(func(c *config.Config) *string { return &c.Postgres.Host })},
	{"DB_PORT", setInt(func(c *config.Config) *int { return &c.Postgres.Port })},
	{"DB_NAME", setString(func(c *config.Config) *string { return &c.Postgres.Database })},
	{"DB_USER", setString(func(c *config.Config) *string { return &c.Postgres.User })},
	{"DB_PASSWORD", setString(func(c *config.Config) *string { return &c.Postgres.Password })},
	{"DB_SSLMODE", setString(func(c *config.Config) *string { return &c.Postgres.SSLMode })},
	{"DB_SCHEMA", setString(func(c *config.Config) *string { return &c.Postgres.Schema })},

	{"MYSQL_HOST", setString(func(c *config.Config) *string { return &c.MySQL.Host })},
	{"MYSQL_PORT", setInt(func(c *config.Config) *int { return &c.MySQL.Port })},
	{"MYSQL_DATABASE", setString(func(c *config.Config) *string { return &c.MySQL.Database })},
	{"MYSQL_USER", setString(func(c *config.Config) *string { return &c.MySQL.User })},
	{"MYSQL_PASSWORD", setString(func(c *config.Config) *string { return &c.MySQL.Password })},

	{"MONGODB_CONNECTION_STRING", setString(func(c *config.Config) *string { return &c.MongoDB.URI })},
	{"MONGODB_DATABASE", setString(func(c *config.Config) *string { return &c.MongoDB.Database })},

	{"OPENAI_API_KEY", setString(func(c *config.Config) *string { return &c.LLM.APIKey })},
	{"OPENAI_MODEL", setString(func(c *config.Config) *string { return &c.LLM.Model })},
	{"OPENAI_BASE_URL", setString(func(c *config.Config) *string { return &c.LLM.BaseURL })},

	{"NOTIFICATION_BASE_URL", setString(func(c *config.Config) *string { return &c.Notification.BaseURL })},
	{"NOTIFICATION_EMAIL_PATH", setString(func(c *config.Config) *string { return &c.Notification.EmailPath })},
	{"NOTIFICATION_SMS_PATH", setString(func(c *config.Config) *string { return &c.Notification.SMSPath })},
	{"NOTIFICATION_PUSH_PATH", setString(func(c *config.Config) *string { return &c.Notification.PushPath })},
	{"SMS_PHONE_PATTERN", setString(func(c *config.Config) *string { return &c.Notification.PhonePattern })},

	{"QUERY_MAX_ROWS", setInt(func(c *config.Config) *int { return &c.Query.MaxRows })},
	{"CONNECT_TIMEOUT", setDuration(func(c *config.Config) *time.Duration { return &c.Query.ConnectTimeout })},

	{"ACTIVITY_DB", setString(func(c *config.Config) *string { return &c.Activity.DSN })},

	{"LOG_LEVEL", setString(func(c *config.Config) *string { return &c.Logging.Level })},
	{"LOG_FORMAT", setString(func(c *config.Config) *string { return &c.Logging.Format })},

	{"TRACE_EXPORTER", setString(func(c *config.Config) *string { return &c.Tracing.Exporter })},
	{"OTLP_ENDPOINT", setString(func(c *config.Config) *string { return &c.Tracing.Endpoint })},
}

// EnvNames returns every environment variable the loader reads.
func EnvNames() []string {
	names := make([]string, len(bindings))
	for i, b := range bindings {
		names[i] = b.name
	}
	return names
}

// applyEnv overlays non-empty environment variables. Malformed values are
// collected as validation errors.
func applyEnv(c *config.Config, lookup LookupFunc) config.ValidationErrors {
	var errs config.ValidationErrors
	for _, b := range bindings {
		v, ok := lookup(b.name)
		if !ok || v == "" {
			continue
		}
		if err := b.apply(c, v); err != nil {
			errs = append(errs, config.ValidationError{Path: b.name, Message: err.Error()})
		}
	}
	return errs
}

func setString(field func(*config.Config) *string) func(*config.Config, string) error {
	return func(c *config.Config, v string) error {
		*field(c) = strings.TrimSpace(v)
		return nil
	}
}

func setInt(field func(*config.Config) *int) func(*config.Config, string) error {
	return func(c *config.Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("not an integer: %q", v)
		}
		*field(c) = n
		return nil
	}
}

// setDuration accepts Go durations ("10s") and bare seconds ("10").
func setDuration(field func(*config.Config) *time.Duration) func(*config.Config, string) error {
	return func(c *config.Config, v string) error {
		v = strings.TrimSpace(v)
		if n, err := strconv.Atoi(v); err == nil {
			*field(c) = time.Duration(n) * time.Second
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("not a duration: %q", v)
		}
		*field(c) = d
		return nil
	}
}
