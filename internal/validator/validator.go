package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the validator library behind the two operations the core
// needs: whole-struct validation (config, raw records) and single values.
type Validator struct {
	validate *validator.Validate
}

// New creates a new Validator instance.
func New() *Validator {
	return &Validator{
		validate: validator.New(),
	}
}

// ValidateStruct validates a struct based on its tags.
func (v *Validator) ValidateStruct(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// ValidateVar validates a single value against a tag expression,
// e.g. ValidateVar(url, "required,url").
func (v *Validator) ValidateVar(value interface{}, tag string) error {
	if err := v.validate.Var(value, tag); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
