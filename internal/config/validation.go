package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.Watch.Dir == "" {
		errs = append(errs, ValidationError{
			Field:   "watch.dir",
			Message: "watch directory is required",
		})
	}
	if !strings.HasPrefix(c.Watch.Extension, ".") {
		errs = append(errs, ValidationError{
			Field:   "watch.extension",
			Message: fmt.Sprintf("must start with a dot, got %q", c.Watch.Extension),
		})
	}
	if c.Watch.FallbackPrinter == "" {
		errs = append(errs, ValidationError{
			Field:   "watch.fallback_printer",
			Message: "fallback printer name must not be empty",
		})
	}

	if c.Storage.Path == "" {
		errs = append(errs, ValidationError{
			Field:   "storage.path",
			Message: "database path is required",
		})
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("unknown level %q", c.Logging.Level),
		})
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json", "":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("unknown format %q", c.Logging.Format),
		})
	}
	if out := strings.ToLower(c.Logging.Output); out == "file" || out == "both" {
		if c.Logging.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: "file output requires a file path",
			})
		}
	}

	if c.HTTP.Enabled && c.HTTP.Addr == "" {
		errs = append(errs, ValidationError{
			Field:   "http.addr",
			Message: "listen address is required when http is enabled",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
