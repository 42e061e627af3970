package validation

import (
	"fmt"
	"reflect"

	"starview/internal/services"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct validates a struct using go-playground/validator and
// maps tag failures to field-level service errors.
func ValidateStruct(s interface{}) error {
	if s == nil {
		return nil
	}

	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return fmt.Errorf("validator: expected a struct, got %T", s)
	}

	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	if ve, ok := err.(validator.ValidationErrors); ok {
		fields := make([]services.FieldError, 0, len(ve))
		for _, e := range ve {
			fields = append(fields, services.FieldError{
				Field:   e.Field(),
				Message: fmt.Sprintf("failed validation: %s", e.Tag()),
				Code:    e.Tag(),
			})
		}
		return services.NewDetailedValidationError("request validation failed", fields)
	}
	return fmt.Errorf("validation failed: %w", err)
}
