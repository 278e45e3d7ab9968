package validation

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/joaomjbraga/shipment-management/pkg/util/errorutil"
)

// Validator wraps validator.v10 so that field errors use JSON tag names.
type Validator struct {
	v *validator.Validate
}

// New configures a validator.
// - Uses JSON tag names in errors.
// - Registers alias tags for common validations.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterAlias("pwd", "min=6,max=72")
	v.RegisterAlias("role", "oneof=customer seller")
	v.RegisterAlias("status", "oneof=processing shipped delivered")
	return &Validator{v: v}
}

// Struct validates s and returns a 400 DomainError carrying field details.
func (val *Validator) Struct(s any) error {
	if err := val.v.Struct(s); err != nil {
		return errorutil.NewValidationError("Validation failed.", ToDetails(err))
	}
	return nil
}

// Var validates a single value under the given field name.
func (val *Validator) Var(field string, value any, tag string) error {
	if err := val.v.Var(value, tag); err != nil {
		details := ToDetails(err)
		for i := range details {
			details[i].Field = field
		}
		return errorutil.NewValidationError("Validation failed.", details)
	}
	return nil
}

// ToDetails converts validation/binding errors into field errors suitable for API responses.
func ToDetails(err error) []errorutil.FieldError {
	if err == nil {
		return nil
	}

	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) || errors.As(err, &ute) {
		return []errorutil.FieldError{{Field: "payload", Message: "invalid json"}}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]errorutil.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, errorutil.FieldError{Field: fe.Field(), Message: formatFieldError(fe)})
		}
		return out
	}

	return []errorutil.FieldError{{Field: "payload", Message: "invalid payload"}}
}

func formatFieldError(fe validator.FieldError) string {
	param := fe.Param()
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "min":
		if isNumberKind(fe.Kind()) {
			return "must be at least " + param
		}
		return "must be at least " + param + " characters long"
	case "max":
		if isNumberKind(fe.Kind()) {
			return "must be at most " + param
		}
		return "must be at most " + param + " characters long"
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	case "pwd":
		return "must be between 6 and 72 characters long"
	case "role":
		return "must be one of: customer, seller"
	case "status":
		return "must be one of: processing, shipped, delivered"
	}
	return "is invalid"
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
