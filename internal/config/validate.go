package config

import (
	"fmt"
	"net"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// validBackends are the accepted storage backend names.
var validBackends = map[string]bool{
	"memory": true,
	"file":   true,
	"sqlite": true,
}

// Validate checks the configuration for required fields and valid values.
func Validate(c *Config) error {
	var errors []string

	if c.App.Name == "" {
		errors = append(errors, ValidationError{
			Field:   "app.name",
			Message: "application name must not be empty",
		}.Error())
	}

	if c.Update.CheckFrequency < 0 {
		errors = append(errors, ValidationError{
			Field:   "update.check_frequency",
			Message: "check frequency must not be negative",
		}.Error())
	}

	if c.Serve.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Serve.Listen); err != nil {
			errors = append(errors, ValidationError{
				Field:   "serve.listen",
				Message: fmt.Sprintf("invalid listen address %q: expected host:port", c.Serve.Listen),
			}.Error())
		}
	}

	if c.Storage.Backend != "" && !validBackends[c.Storage.Backend] {
		errors = append(errors, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("unknown backend %q: expected memory, file, or sqlite", c.Storage.Backend),
		}.Error())
	}
	if (c.Storage.Backend == "file" || c.Storage.Backend == "sqlite") && c.Storage.Path == "" {
		errors = append(errors, ValidationError{
			Field:   "storage.path",
			Message: fmt.Sprintf("path is required for the %s backend", c.Storage.Backend),
		}.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("invalid configuration:\n  %s", strings.Join(errors, "\n  "))
	}
	return nil
}
