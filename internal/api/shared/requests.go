package shared

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// ValidateRequest validates v with its Validate method when it has one,
// otherwise with its struct tags.
func ValidateRequest(v interface{}) error {
	if validator, ok := v.(interface{ Validate() error }); ok {
		return validator.Validate()
	}
	return validate.Struct(v)
}
