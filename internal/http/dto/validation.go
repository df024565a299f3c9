package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) ToMap() map[string]string {
	return map[string]string{e.Field: e.Message}
}

func ToMap(errs []ValidationError) map[string]string {
	result := make(map[string]string)
	for _, e := range errs {
		result[e.Field] = e.Message
	}
	return result
}

func ToResponse(errs []ValidationError) string {
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields under their wire names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})

	v.RegisterStructValidation(validateLevelRange, ItemQuery{})
	return v
}

// validateLevelRange rejects min_level > max_level when both are set.
func validateLevelRange(sl validator.StructLevel) {
	q := sl.Current().Interface().(ItemQuery)
	if q.MinLevel > 0 && q.MaxLevel > 0 && q.MinLevel > q.MaxLevel {
		sl.ReportError(q.MaxLevel, "max_level", "MaxLevel", "gtefield", "min_level")
	}
}

// Validate checks s against its validate tags.
func Validate(s interface{}) []ValidationError {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{Field: "request", Message: "invalid request"}}
	}

	errs := make([]ValidationError, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		errs = append(errs, ValidationError{Field: e.Field(), Message: message(e)})
	}
	return errs
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", e.Param())
		}
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", e.Param())
		}
		return fmt.Sprintf("must be at most %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(e.Param(), " ", ", "))
	case "gtefield":
		return fmt.Sprintf("must not be less than %s", e.Param())
	default:
		return "invalid value"
	}
}

// parseInt reads an optional integer parameter. A missing or empty value leaves dst untouched.
func parseInt(raw, field string, dst *int) []ValidationError {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return []ValidationError{{Field: field, Message: "must be an integer"}}
	}
	*dst = n
	return nil
}
