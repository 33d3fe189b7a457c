// Package validatex validates request DTOs with struct tags and reports
// failures as errx validation errors.
package validatex

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/go-playground/validator/v10"
)

var validationErrors = errx.NewRegistry("VALIDATION")

// ErrInvalidInput carries the failing fields under details["fields"].
var ErrInvalidInput = validationErrors.Register("INVALID_INPUT", errx.TypeValidation, 400, "Validation failed")

var (
	once     sync.Once
	instance *validator.Validate
)

// FieldError describes one failing field using its JSON name.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		instance.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
	return instance
}

// Struct validates v and returns an *errx.Error listing every failing field.
func Struct(v any) error {
	err := get().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return validationErrors.NewWithCause(ErrInvalidInput, err)
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Param:   fe.Param(),
			Message: message(fe),
		})
	}

	e := validationErrors.New(ErrInvalidInput).WithDetail("fields", fields)
	if len(fields) == 1 {
		e.Message = fields[0].Message
	}
	return e
}

// Fields returns the field errors carried by err, if any.
func Fields(err error) []FieldError {
	var e *errx.Error
	if !errors.As(err, &e) {
		return nil
	}
	fields, _ := e.Details["fields"].([]FieldError)
	return fields
}

func message(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return f + " is required"
	case "email":
		return f + " must be a valid email"
	case "min":
		if fe.Kind() == reflect.String {
			return f + " must be at least " + fe.Param() + " characters"
		}
		return f + " must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return f + " must be at most " + fe.Param() + " characters"
		}
		return f + " must be at most " + fe.Param()
	case "oneof":
		return f + " must be one of: " + fe.Param()
	case "uuid", "uuid4":
		return f + " must be a valid UUID"
	case "url":
		return f + " must be a valid URL"
	}
	return f + " is invalid"
}
