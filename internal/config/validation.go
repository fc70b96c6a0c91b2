package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate checks the settings every command depends on. The API key is
// checked separately by RequireAPIKey because `arrow models` and
// `arrow config` work without one.
func (c *Config) Validate() error {
	var errors ValidationErrors

	if strings.TrimSpace(c.Model) == "" {
		errors = append(errors, ValidationError{
			Field:   "model",
			Message: "model must be specified",
		})
	} else if len(c.Models) > 0 && !slices.Contains(c.Models, c.Model) {
		errors = append(errors, ValidationError{
			Field:   "model",
			Message: fmt.Sprintf("'%s' is not in models list: %s", c.Model, strings.Join(c.Models, ", ")),
		})
	}

	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "base_url",
			Message: fmt.Sprintf("'%s' is not an absolute URL", c.BaseURL),
		})
	}

	if c.Timeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "timeout",
			Message: "must be positive",
		})
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, ValidationError{
			Field:   "log_level",
			Message: err.Error(),
		})
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("unknown format '%s', valid: text, json", c.LogFormat),
		})
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Message: "must be between 0 and 65535",
		})
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

// RequireAPIKey reports a helpful error when no credential is configured.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("no API key configured: set %s or %s, or api_key in %s",
			EnvAPIKey, EnvOpenAIKey, "arrow.yaml")
	}
	return nil
}

// GetConfigPrecedence describes where settings come from.
func GetConfigPrecedence() string {
	return `Configuration is loaded in the following order (later sources override earlier):

1. Built-in defaults
2. Config file (--config, $ARROW_CONFIG, or arrow.yaml in ~/.config/arrow, ., ./.arrow)
3. Environment variables (ARROW_MODEL, ARROW_API_KEY / OPENAI_API_KEY, ARROW_SERVER_PORT, ...)
4. Command-line flags (--model, --verbose)
`
}
