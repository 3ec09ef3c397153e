package types

import (
	"errors"
	"fmt"
)

// ConfigValidationError represents a configuration validation error
type ConfigValidationError struct {
	Field   string
	Message string
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConfigValidationResult contains the results of configuration validation
type ConfigValidationResult struct {
	Valid    bool
	Errors   []ConfigValidationError
	Warnings []string
}

// NewConfigValidationResult returns an empty, valid result
func NewConfigValidationResult() *ConfigValidationResult {
	return &ConfigValidationResult{Valid: true}
}

// AddError adds an error to the result
func (r *ConfigValidationResult) AddError(field, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, ConfigValidationError{Field: field, Message: message})
}

// AddWarning adds a warning to the result
func (r *ConfigValidationResult) AddWarning(message string) {
	r.Warnings = append(r.Warnings, message)
}

// Err joins all validation errors, or returns nil when the result is valid
func (r *ConfigValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// ValidateStoragePools checks pool names are set and unique
func ValidateStoragePools(pools []StoragePool) *ConfigValidationResult {
	result := NewConfigValidationResult()

	names := make(map[string]bool)
	for i, p := range pools {
		field := fmt.Sprintf("dynamic_storage_pools[%d]", i)
		if p.Name == "" {
			result.AddError(field+".name", "pool name cannot be empty")
			continue
		}
		if names[p.Name] {
			result.AddError(field+".name", fmt.Sprintf("duplicate pool name: %s", p.Name))
		}
		names[p.Name] = true

		switch p.Kind {
		case MediaTypeHDD, MediaTypeSSD, MediaTypeNVMe:
		case "":
			result.AddError(field+".kind", "pool kind cannot be empty")
		default:
			result.AddWarning(fmt.Sprintf("pool %q has unrecognized kind %q", p.Name, p.Kind))
		}
	}

	return result
}
