package config

import (
	"fmt"
	"net"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ConfigValidator provides a fluent interface for validating configuration
// values. It collects all validation errors rather than failing on the first
// one.
type ConfigValidator struct {
	errors []error
	name   string
}

// NewConfigValidator creates a new config validator with the given config name.
func NewConfigValidator(configName string) *ConfigValidator {
	return &ConfigValidator{name: configName}
}

// Required validates that a string field is not empty.
func (cv *ConfigValidator) Required(field, value string) *ConfigValidator {
	if value == "" {
		cv.errors = append(cv.errors, fmt.Errorf("%s.%s: required field is empty", cv.name, field))
	}
	return cv
}

// Positive validates that an int field is positive (> 0).
func (cv *ConfigValidator) Positive(field string, value int) *ConfigValidator {
	if value <= 0 {
		cv.errors = append(cv.errors, fmt.Errorf("%s.%s: value %d must be positive", cv.name, field, value))
	}
	return cv
}

// MinDuration validates that a duration is at least the minimum.
func (cv *ConfigValidator) MinDuration(field string, value, min time.Duration) *ConfigValidator {
	if value < min {
		cv.errors = append(cv.errors, fmt.Errorf("%s.%s: duration %v is below minimum %v", cv.name, field, value, min))
	}
	return cv
}

// HostPort validates a listen or dial address of the form host:port.
func (cv *ConfigValidator) HostPort(field, value string) *ConfigValidator {
	if _, _, err := net.SplitHostPort(value); err != nil {
		cv.errors = append(cv.errors, fmt.Errorf("%s.%s: %w", cv.name, field, err))
	}
	return cv
}

// Custom applies a custom validation function.
func (cv *ConfigValidator) Custom(field string, fn func() error) *ConfigValidator {
	if err := fn(); err != nil {
		cv.errors = append(cv.errors, fmt.Errorf("%s.%s: %w", cv.name, field, err))
	}
	return cv
}

// When conditionally applies validations if the condition is true.
func (cv *ConfigValidator) When(condition bool, validations func(*ConfigValidator)) *ConfigValidator {
	if condition {
		validations(cv)
	}
	return cv
}

// HasErrors returns true if any validation errors occurred.
func (cv *ConfigValidator) HasErrors() bool {
	return len(cv.errors) > 0
}

// Errors returns all validation errors.
func (cv *ConfigValidator) Errors() []error {
	return cv.errors
}

// Validate returns a combined error if any validations failed.
func (cv *ConfigValidator) Validate() error {
	switch len(cv.errors) {
	case 0:
		return nil
	case 1:
		return cv.errors[0]
	}
	return fmt.Errorf("%s validation failed with %d errors: %w", cv.name, len(cv.errors), cv.errors[0])
}

// formatValidationError reports the first struct-tag failure by field.
func formatValidationError(err error) error {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	for _, e := range validationErrs {
		field := e.Namespace()
		switch e.Tag() {
		case "required":
			return fmt.Errorf("%w: %s: field is required", ErrInvalidConfig, field)
		case "min":
			return fmt.Errorf("%w: %s: must be at least %s", ErrInvalidConfig, field, e.Param())
		case "max":
			return fmt.Errorf("%w: %s: must not exceed %s", ErrInvalidConfig, field, e.Param())
		case "oneof":
			return fmt.Errorf("%w: %s: %v must be one of [%s]", ErrInvalidConfig, field, e.Value(), e.Param())
		default:
			return fmt.Errorf("%w: %s: validation failed (%s)", ErrInvalidConfig, field, e.Tag())
		}
	}
	return err
}
