package config

import (
	"errors"
	"fmt"
	"math"
)

// ErrValidationFailed indicates the configuration fails validation.
var ErrValidationFailed = errors.New("validation failed")

// ValidationError describes a validation failure for a setting.
type ValidationError struct {
	// Path is the setting path that failed validation.
	Path string
	// Message describes the validation error.
	Message string
	// Value is the invalid value.
	Value any
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (value: %v)", e.Path, e.Message, e.Value)
}

// Is matches ErrValidationFailed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// Validate checks every setting and returns all failures joined.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, path, msg string, value any) {
		if !ok {
			errs = append(errs, &ValidationError{Path: path, Message: msg, Value: value})
		}
	}

	check(c.History.MaxCommands > 0, "history.max_commands", "must be positive", c.History.MaxCommands)
	check(c.Journal.MaxSnapshots > 0, "journal.max_snapshots", "must be positive", c.Journal.MaxSnapshots)

	switch c.Storage.Backend {
	case BackendMemory, BackendFile:
	case BackendPostgres:
		check(c.Storage.DatabaseURL != "", "storage.database_url", "required for postgres", c.Storage.DatabaseURL)
	default:
		check(false, "storage.backend", "must be memory, file or postgres", c.Storage.Backend)
	}
	if c.Storage.Backend == BackendFile {
		check(c.Storage.Dir != "", "storage.dir", "required for file storage", c.Storage.Dir)
	}
	check(c.Storage.MaxConns >= 0 && c.Storage.MaxConns <= math.MaxInt32,
		"storage.max_conns", "must be between 0 and 2147483647", c.Storage.MaxConns)

	check(c.Render.Scale > 0, "render.scale", "must be positive", c.Render.Scale)
	check(c.Render.Format == "png" || c.Render.Format == "jpeg", "render.format", "must be png or jpeg", c.Render.Format)
	check(c.Render.Quality >= 1 && c.Render.Quality <= 100, "render.quality", "must be between 1 and 100", c.Render.Quality)

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		check(false, "logging.level", "unknown level", c.Logging.Level)
	}
	check(c.Logging.Format == "text" || c.Logging.Format == "json", "logging.format", "must be text or json", c.Logging.Format)

	return errors.Join(errs...)
}
