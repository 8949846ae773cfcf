package utils

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Validator returns the process-wide validator. Field errors are keyed by JSON name.
func Validator() *validator.Validate {
	return validate
}

// NormalizeEmail trims surrounding space and lowercases the address so
// lookups and the unique index agree.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidEmail accepts a bare address such as "a@x.com" and rejects display-name forms.
func IsValidEmail(email string) bool {
	return validate.Var(email, "required,max=254,email") == nil
}
