package config

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path names the offending setting, usually its environment variable.
	Path string
	// Message describes the validation error.
	Message string
	// Missing marks a required setting that was not provided.
	Missing bool
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// Is matches ErrValidationFailed, and ErrMissingEnvVar when any required
// setting is missing.
func (e ValidationErrors) Is(target error) bool {
	switch target {
	case ErrValidationFailed:
		return len(e) > 0
	case ErrMissingEnvVar:
		for _, v := range e {
			if v.Missing {
				return true
			}
		}
	}
	return false
}

// Validate checks the configuration. It returns nil or a ValidationErrors.
// A backend with some but not all required settings, a configuration with
// no backend at all, and malformed values are all reported.
func Validate(c Config) error {
	var errs ValidationErrors
	missing := func(path, message string) {
		errs = append(errs, ValidationError{Path: path, Message: message, Missing: true})
	}
	invalid := func(path, message string) {
		errs = append(errs, ValidationError{Path: path, Message: message})
	}

	if c.Postgres.Configured() {
		for env, v := range map[string]string{"DB_HOST": c.Postgres.Host, "DB_NAME": c.Postgres.Database, "DB_USER": c.Postgres.User} {
			if v == "" {
				missing(env, "required when postgres is configured")
			}
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			invalid("DB_PORT", "must be a port number")
		}
		switch c.Postgres.SSLMode {
		case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
		default:
			invalid("DB_SSLMODE", fmt.Sprintf("unsupported mode %q", c.Postgres.SSLMode))
		}
	}

	if c.MySQL.Configured() {
		for env, v := range map[string]string{"MYSQL_HOST": c.MySQL.Host, "MYSQL_DATABASE": c.MySQL.Database, "MYSQL_USER": c.MySQL.User} {
			if v == "" {
				missing(env, "required when mysql is configured")
			}
		}
		if c.MySQL.Port <= 0 || c.MySQL.Port > 65535 {
			invalid("MYSQL_PORT", "must be a port number")
		}
	}

	if c.MongoDB.Configured() {
		if c.MongoDB.URI == "" {
			missing("MONGODB_CONNECTION_STRING", "required when mongodb is configured")
		} else if !strings.HasPrefix(c.MongoDB.URI, "mongodb://") && !strings.HasPrefix(c.MongoDB.URI, "mongodb+srv://") {
			invalid("MONGODB_CONNECTION_STRING", "must start with mongodb:// or mongodb+srv://")
		}
		if c.MongoDB.Database == "" {
			missing("MONGODB_DATABASE", "required when mongodb is configured")
		}
	}

	if len(c.Backends()) == 0 {
		missing("", "no database backend configured; set DB_*, MYSQL_* or MONGODB_* variables")
	}

	if c.Query.MaxRows <= 0 {
		invalid("QUERY_MAX_ROWS", "must be positive")
	}
	if c.Query.ConnectTimeout <= 0 {
		invalid("CONNECT_TIMEOUT", "must be positive")
	}
	if c.Notification.PhonePattern != "" {
		if _, err := regexp.Compile(c.Notification.PhonePattern); err != nil {
			invalid("SMS_PHONE_PATTERN", err.Error())
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		invalid("LOG_LEVEL", fmt.Sprintf("unknown level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		invalid("LOG_FORMAT", fmt.Sprintf("unknown format %q", c.Logging.Format))
	}
	switch c.Tracing.Exporter {
	case "noop", "stdout":
	case "otlp":
		if c.Tracing.Endpoint == "" {
			missing("OTLP_ENDPOINT", "required when TRACE_EXPORTER is otlp")
		}
	default:
		invalid("TRACE_EXPORTER", fmt.Sprintf("unknown exporter %q", c.Tracing.Exporter))
	}

	if len(errs) == 0 {
		return nil
	}
	// Map iteration above is unordered; keep messages stable.
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Path < errs[j].Path })
	return errs
}

// IsFatal reports whether err is a configuration error that must stop
// startup.
func IsFatal(err error) bool {
	return errors.Is(err, ErrValidationFailed) || errors.Is(err, ErrMissingEnvVar)
}
