package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for field %q: %s", e.Field, e.Message)
}

// Validator provides configuration validation utilities
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{
		errors: []ValidationError{},
	}
}

// Add records a custom validation failure
func (v *Validator) Add(field, message string) *Validator {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message})
	return v
}

// RequireOneOf validates that at least one of the named values is set
func (v *Validator) RequireOneOf(fields map[string]string) *Validator {
	names := make([]string, 0, len(fields))
	for name, value := range fields {
		if strings.TrimSpace(value) != "" {
			return v
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return v.Add(strings.Join(names, "|"), "one of the values must be set")
}

// RequireNonEmpty validates that a string field is not empty
func (v *Validator) RequireNonEmpty(field, value string) *Validator {
	if value == "" {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: "value cannot be empty",
		})
	}
	return v
}

// RequirePositive validates that an integer field is greater than 0
func (v *Validator) RequirePositive(field string, value int) *Validator {
	if value <= 0 {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must be positive, got %d", value),
		})
	}
	return v
}

// ValidateRange validates that an integer field is within a range [min, max]
func (v *Validator) ValidateRange(field string, value, min, max int) *Validator {
	if value < min || value > max {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must be between %d and %d, got %d", min, max, value),
		})
	}
	return v
}

// ValidateFloatRange validates that a float field is within a range [min, max]
func (v *Validator) ValidateFloatRange(field string, value, min, max float64) *Validator {
	if value < min || value > max {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must be between %.2f and %.2f, got %.2f", min, max, value),
		})
	}
	return v
}

// ValidatePort validates that a port number is valid (1-65535)
func (v *Validator) ValidatePort(field string, port int) *Validator {
	return v.ValidateRange(field, port, 1, 65535)
}

// ValidateDBNumber validates that a database number is valid (0-15 for Redis)
func (v *Validator) ValidateDBNumber(field string, db int) *Validator {
	return v.ValidateRange(field, db, 0, 15)
}

// ValidateOneOf validates that a string value is one of the allowed options
func (v *Validator) ValidateOneOf(field string, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if a == value {
			return v
		}
	}
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: fmt.Sprintf("value must be one of %v, got %q", allowed, value),
	})
	return v
}

// HasErrors returns true if there are any validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Error returns a combined error message or nil if no errors
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}

	msg := "configuration validation failed:\n"
	for _, e := range v.errors {
		msg += fmt.Sprintf("  - %s: %s\n", e.Field, e.Message)
	}
	return errors.New(msg)
}

// ValidatePostgresConfig validates a PostgreSQL connection string and table name
func ValidatePostgresConfig(dsn string, table string) error {
	v := NewValidator()

	v.RequireNonEmpty("dsn", dsn)
	if dsn != "" && strings.Contains(dsn, "://") {
		u, err := url.Parse(dsn)
		if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			v.Add("dsn", "expected a postgres:// URL or key=value connection string")
		}
	}
	v.RequireNonEmpty("table", table)

	return v.Error()
}

// ValidateRedisConfig validates Redis configuration
func ValidateRedisConfig(addr string, db int, prefix string) error {
	v := NewValidator()

	v.RequireNonEmpty("addr", addr)
	v.ValidateDBNumber("db", db)
	v.RequireNonEmpty("prefix", prefix)

	return v.Error()
}

// ValidateMongoDBConfig validates MongoDB configuration
func ValidateMongoDBConfig(uri string, database string, collection string) error {
	v := NewValidator()

	v.RequireNonEmpty("uri", uri)
	v.RequireNonEmpty("database", database)
	v.RequireNonEmpty("collection", collection)

	return v.Error()
}

// ValidateMCPConfig validates that some MCP server source is configured
func ValidateMCPConfig(endpoint, command, profilesFile string) error {
	v := NewValidator()
	v.RequireOneOf(map[string]string{
		"endpoint":     endpoint,
		"command":      command,
		"profilesFile": profilesFile,
	})
	return v.Error()
}

// ValidateLLMConfig validates LLM provider configuration
func ValidateLLMConfig(apiKey string, model string, temperature float64, maxTokens int) error {
	v := NewValidator()

	v.RequireNonEmpty("apiKey", apiKey)
	v.RequireNonEmpty("model", model)
	v.ValidateFloatRange("temperature", temperature, 0.0, 2.0)
	v.RequirePositive("maxTokens", maxTokens)

	return v.Error()
}

// ValidateRunnerConfig validates runner configuration
func ValidateRunnerConfig(maxConcurrency int) error {
	v := NewValidator()
	v.RequirePositive("maxConcurrency", maxConcurrency)
	return v.Error()
}

// ValidateRateLimiterConfig validates rate limiter configuration
func ValidateRateLimiterConfig(maxRequests int) error {
	v := NewValidator()
	v.RequirePositive("maxRequests", maxRequests)
	return v.Error()
}
