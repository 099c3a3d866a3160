package handlers

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// resourceCodePattern constrains the codes usable in URLs and cookie names.
var resourceCodePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// Global validator instance (reused across all handlers)
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// resource_code: lowercase alphanumeric with - and _, max 64 chars
	_ = v.RegisterValidation("resource_code", func(fl validator.FieldLevel) bool {
		return resourceCodePattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidResourceCode reports whether a URL path segment is a well-formed
// resource code.
func ValidResourceCode(code string) bool {
	return resourceCodePattern.MatchString(code)
}

// ValidateRequest validates a request struct using go-playground/validator
// Returns a user-friendly error message if validation fails
func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			return fmt.Errorf("validation failed: %s: %s", ve[0].Field(), formatValidationError(ve[0]))
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// formatValidationError converts a validator FieldError to a user-friendly message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return fmt.Sprintf("must have a minimum of %s", fe.Param())
	case "max":
		return fmt.Sprintf("must have a maximum of %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "ip":
		return "must be a valid IP address"
	case "resource_code":
		return "must be lowercase letters, digits, - or _"
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
