package config_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/felixgeelhaar/dbmcp/domain/config"
	"github.com/felixgeelhaar/dbmcp/domain/query"
)

func withPostgres(c config.Config) config.Config {
	c.Postgres.Host = "localhost"
	c.Postgres.Database = "app"
	c.Postgres.User = "reader"
	return c
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	c := config.Defaults()
	if c.Postgres.Port != 5432 || c.MySQL.Port != 3306 {
		t.Errorf("ports = %d, %d", c.Postgres.Port, c.MySQL.Port)
	}
	if c.Query.MaxRows != 500 {
		t.Errorf("MaxRows = %d, want 500", c.Query.MaxRows)
	}
	if c.LLM.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q", c.LLM.Model)
	}
	if len(c.Backends()) != 0 {
		t.Errorf("Backends() = %v, want none", c.Backends())
	}
}

func TestBackends(t *testing.T) {
	t.Parallel()

	c := withPostgres(config.Defaults())
	c.MongoDB.URI = "mongodb://localhost"
	c.MongoDB.Database = "app"

	got := c.Backends()
	if len(got) != 2 || got[0] != query.Postgres || got[1] != query.MongoDB {
		t.Errorf("Backends() = %v", got)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		mutate      func(*config.Config)
		wantMissing bool
		wantPath    string
	}{
		{name: "valid postgres", mutate: func(c *config.Config) { *c = withPostgres(*c) }},
		{
			name:   "valid mongodb only",
			mutate: func(c *config.Config) { c.MongoDB = config.MongoConfig{URI: "mongodb+srv://x", Database: "d"} },
		},
		{name: "no backend", mutate: func(*config.Config) {}, wantMissing: true},
		{
			name:        "partial postgres",
			mutate:      func(c *config.Config) { c.Postgres.Host = "localhost" },
			wantMissing: true,
			wantPath:    "DB_NAME",
		},
		{
			name: "partial mysql",
			mutate: func(c *config.Config) {
				*c = withPostgres(*c)
				c.MySQL.Host = "db"
				c.MySQL.User = "u"
			},
			wantMissing: true,
			wantPath:    "MYSQL_DATABASE",
		},
		{
			name: "mongo without database",
			mutate: func(c *config.Config) {
				c.MongoDB.URI = "mongodb://localhost"
			},
			wantMissing: true,
			wantPath:    "MONGODB_DATABASE",
		},
		{
			name: "bad mongo scheme",
			mutate: func(c *config.Config) {
				c.MongoDB = config.MongoConfig{URI: "http://x", Database: "d"}
			},
			wantPath: "MONGODB_CONNECTION_STRING",
		},
		{
			name: "bad port",
			mutate: func(c *config.Config) {
				*c = withPostgres(*c)
				c.Postgres.Port = 70000
			},
			wantPath: "DB_PORT",
		},
		{
			name: "bad sslmode",
			mutate: func(c *config.Config) {
				*c = withPostgres(*c)
				c.Postgres.SSLMode = "sometimes"
			},
			wantPath: "DB_SSLMODE",
		},
		{
			name: "bad max rows",
			mutate: func(c *config.Config) {
				*c = withPostgres(*c)
				c.Query.MaxRows = 0
			},
			wantPath: "QUERY_MAX_ROWS",
		},
		{
			name: "bad phone pattern",
			mutate: func(c *config.Config) {
				*c = withPostgres(*c)
				c.Notification.PhonePattern = "("
			},
			wantPath: "SMS_PHONE_PATTERN",
		},
		{
			name: "bad log level",
			mutate: func(c *config.Config) {
				*c = withPostgres(*c)
				c.Logging.Level = "loud"
			},
			wantPath: "LOG_LEVEL",
		},
		{
			name: "otlp without endpoint",
			mutate: func(c *config.Config) {
				*c = withPostgres(*c)
				c.Tracing.Exporter = "otlp"
			},
			wantMissing: true,
			wantPath:    "OTLP_ENDPOINT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := config.Defaults()
			tt.mutate(&c)
			err := config.Validate(c)

			if tt.wantPath == "" && !tt.wantMissing {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, config.ErrValidationFailed) {
				t.Fatalf("Validate() error = %v, want ErrValidationFailed", err)
			}
			if !config.IsFatal(err) {
				t.Error("IsFatal() = false")
			}
			if got := errors.Is(err, config.ErrMissingEnvVar); got != tt.wantMissing {
				t.Errorf("errors.Is(ErrMissingEnvVar) = %v, want %v", got, tt.wantMissing)
			}
			if tt.wantPath != "" && !strings.Contains(err.Error(), tt.wantPath) {
				t.Errorf("error %q does not mention %s", err, tt.wantPath)
			}
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Parallel()

	one := config.ValidationErrors{{Path: "DB_HOST", Message: "required"}}
	if one.Error() != "DB_HOST: required" {
		t.Errorf("Error() = %q", one.Error())
	}

	two := config.ValidationErrors{{Path: "A", Message: "x"}, {Message: "y"}}
	if !strings.HasPrefix(two.Error(), "2 validation errors") {
		t.Errorf("Error() = %q", two.Error())
	}
}
