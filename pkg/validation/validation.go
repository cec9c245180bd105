package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	dErrors "lostfound/pkg/domain-errors"
	s "lostfound/pkg/string"
)

// FutureSkew is how far ahead of the server clock a found_at may be before it
// is rejected. Phones with drifting clocks report a few seconds ahead.
const FutureSkew = 5 * time.Minute

var (
	defaultValidator = newValidator(time.Now)
	timeType         = reflect.TypeOf(time.Time{})
)

func newValidator(now func() time.Time) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("notfuture", func(fl validator.FieldLevel) bool {
		if fl.Field().Type() != timeType {
			return false
		}
		t := fl.Field().Interface().(time.Time)
		return !t.After(now().Add(FutureSkew))
	})
	return v
}

// jsonName reports fields by their wire name so messages match the request
// body. Untagged fields fall back to the Go name, snake-cased later.
func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// Validate validates a struct using the default validator and returns a domain error
func Validate(req any) error {
	return validate(defaultValidator, req)
}

func validate(v *validator.Validate, req any) error {
	if err := v.Struct(req); err != nil {
		return dErrors.New(dErrors.CodeValidation, ErrorMessage(err))
	}
	return nil
}

// ErrorMessage converts a validator error into a human-readable message
func ErrorMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return "invalid request body"
	}

	fe := validationErrs[0]
	field := fieldPath(fe)

	switch fe.ActualTag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "uuid":
		return fmt.Sprintf("%s must be a valid uuid", field)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s needs at least %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s allows at most %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "notblank":
		return fmt.Sprintf("%s must not be blank", field)
	case "notfuture":
		return fmt.Sprintf("%s cannot be in the future", field)
	default:
		if field == "" {
			return "invalid request body"
		}
		return fmt.Sprintf("%s is invalid", field)
	}
}

// fieldPath renders nested fields as security_questions[1].answer. The root
// struct name is dropped and each segment is snake-cased.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		ns = rest
	} else {
		ns = fe.Field()
	}
	if ns == "" {
		ns = fe.StructField()
	}
	parts := strings.Split(ns, ".")
	for i, p := range parts {
		name, index, _ := strings.Cut(p, "[")
		parts[i] = s.ToSnakeCase(name)
		if index != "" {
			parts[i] += "[" + index
		}
	}
	return strings.Join(parts, ".")
}
