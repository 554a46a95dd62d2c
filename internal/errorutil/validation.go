package errorutil

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field       string      // The field that failed validation
	Value       interface{} // The value that was being validated
	Rule        string      // The validation rule that failed
	Message     string      // Human-readable error message
	Suggestions []string    // Suggested corrections
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed for field '%s' with rule '%s'", e.Field, e.Rule)
}

// ValidationErrors collects several validation errors
type ValidationErrors struct {
	Errors []ValidationError
}

func (e *ValidationErrors) Error() string {
	switch len(e.Errors) {
	case 0:
		return "validation failed"
	case 1:
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("validation failed with %d errors: %s", len(e.Errors), e.Errors[0].Error())
}

// Append adds err when it is non-nil
func (e *ValidationErrors) Append(err *ValidationError) {
	if err != nil {
		e.Errors = append(e.Errors, *err)
	}
}

// HasErrors returns true if there are validation errors
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// ErrorOrNil returns the collection as an error, or nil when it is empty
func (e *ValidationErrors) ErrorOrNil() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

// LogValidationErrors logs each validation error at warn level
func LogValidationErrors(logger *slog.Logger, valErr *ValidationErrors) *ValidationErrors {
	if logger == nil || valErr == nil || !valErr.HasErrors() {
		return valErr
	}

	for _, err := range valErr.Errors {
		attrs := []any{
			slog.String("field", err.Field),
			slog.String("rule", err.Rule),
			slog.String("message", err.Message),
			slog.Any("value", err.Value),
		}
		if len(err.Suggestions) > 0 {
			attrs = append(attrs, slog.Any("suggestions", err.Suggestions))
		}
		logger.Warn("Validation error", attrs...)
	}
	return valErr
}

// ValidateRequired checks if a field has a non-blank value
func ValidateRequired(field string, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:   field,
			Value:   value,
			Rule:    "required",
			Message: "field is required and cannot be empty",
		}
	}
	return nil
}

// ValidateIntRange checks if an integer value is within a specified range
func ValidateIntRange(field string, value, min, max int) *ValidationError {
	if value < min || value > max {
		return &ValidationError{
			Field:   field,
			Value:   value,
			Rule:    "range",
			Message: fmt.Sprintf("value must be between %d and %d, got %d", min, max, value),
		}
	}
	return nil
}

// ValidateRange checks if a numeric value is within a specified range
func ValidateRange(field string, value, min, max float64) *ValidationError {
	if value < min || value > max {
		return &ValidationError{
			Field:   field,
			Value:   value,
			Rule:    "range",
			Message: fmt.Sprintf("value must be between %.2f and %.2f, got %.2f", min, max, value),
		}
	}
	return nil
}

// ValidateEnum checks if a value is one of the allowed values (case-insensitive)
func ValidateEnum(field string, value string, allowedValues []string) *ValidationError {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, allowed := range allowedValues {
		if strings.ToLower(allowed) == normalized {
			return nil
		}
	}

	return &ValidationError{
		Field:       field,
		Value:       value,
		Rule:        "enum",
		Message:     fmt.Sprintf("value must be one of: %s, got '%s'", strings.Join(allowedValues, ", "), value),
		Suggestions: allowedValues,
	}
}

// ValidateURL checks for an absolute http(s) URL
func ValidateURL(field string, value string) *ValidationError {
	if err := ValidateRequired(field, value); err != nil {
		return err
	}

	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		msg := "URL must be absolute and use http or https"
		if err != nil {
			msg = fmt.Sprintf("invalid URL format: %v", err)
		}
		return &ValidationError{
			Field:   field,
			Value:   value,
			Rule:    "url",
			Message: msg,
			Suggestions: []string{
				"Ensure URL starts with http:// or https://",
			},
		}
	}
	return nil
}

// ValidateCoordinate checks if a coordinate is within valid range
func ValidateCoordinate(field string, value float64, isLatitude bool) *ValidationError {
	min, max, coordType := -180.0, 180.0, "longitude"
	if isLatitude {
		min, max, coordType = -90.0, 90.0, "latitude"
	}

	if value < min || value > max {
		return &ValidationError{
			Field:   field,
			Value:   value,
			Rule:    "coordinate",
			Message: fmt.Sprintf("%s must be between %.1f and %.1f, got %.6f", coordType, min, max, value),
		}
	}
	return nil
}
