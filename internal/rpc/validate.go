package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/marshallshelly/pebble-apps/internal/apperr"
	"github.com/marshallshelly/pebble-apps/pkg/dates"
	"github.com/marshallshelly/pebble-apps/pkg/optional"
)

var (
	hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	clockPattern    = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

var setupValidator sync.Once

// configureValidator teaches gin's validator about json field names, the
// optional and dates types and the rgbhex and clock rules.
func configureValidator() {
	setupValidator.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})

		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if f, ok := field.Interface().(interface{ ValidationValue() any }); ok {
				return f.ValidationValue()
			}
			return nil
		}, optionalTypes...)

		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			d, ok := field.Interface().(dates.Date)
			if !ok || d.IsZero() {
				return nil
			}
			return d.String()
		}, dates.Date{})

		_ = v.RegisterValidation("rgbhex", func(fl validator.FieldLevel) bool {
			return hexColorPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
			return clockPattern.MatchString(fl.Field().String())
		})
	})
}

// optionalTypes lists the optional.Field instantiations used in patch payloads.
// The validator looks custom types up by exact type.
var optionalTypes = []any{
	optional.Field[string]{},
	optional.Field[*string]{},
	optional.Field[int]{},
	optional.Field[*int]{},
	optional.Field[int64]{},
	optional.Field[*int64]{},
	optional.Field[bool]{},
	optional.Field[*bool]{},
	optional.Field[float64]{},
	optional.Field[*float64]{},
	optional.Field[dates.Date]{},
	optional.Field[*dates.Date]{},
	optional.Field[[]string]{},
	optional.Field[[]int64]{},
}

// FormatValidationError renders validator errors as "field is required; other must be at most 5".
func FormatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	messages := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		messages = append(messages, fieldErrorMessage(fieldError))
	}
	return strings.Join(messages, "; ")
}

func fieldErrorMessage(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "url", "http_url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s%s", field, fe.Param(), unit(fe))
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s%s", field, fe.Param(), unit(fe))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "nefield":
		return fmt.Sprintf("%s must differ from %s", field, snakeCase(fe.Param()))
	case "gtfield":
		return fmt.Sprintf("%s must be later than %s", field, snakeCase(fe.Param()))
	case "rgbhex":
		return fmt.Sprintf("%s must be a hex color like #1A2B3C", field)
	case "clock":
		return fmt.Sprintf("%s must be a time in HH:MM format", field)
	case "datetime":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// snakeCase turns the Go field name of a cross-field rule into its JSON name,
// e.g. RequesterID into requester_id.
func snakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		upper := unicode.IsUpper(r)
		if upper && i > 0 {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || (unicode.IsUpper(runes[i-1]) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func unit(fe validator.FieldError) string {
	var noun string
	switch fe.Kind() {
	case reflect.String:
		noun = "character"
	case reflect.Slice, reflect.Array, reflect.Map:
		noun = "item"
	default:
		return ""
	}
	if fe.Param() != "1" {
		noun += "s"
	}
	return " " + noun
}

// bind decodes body into in and validates it. An empty body or null decodes
// to the zero value, which is still validated so required fields are reported.
func bind(body []byte, in any) error {
	trimmed := strings.TrimSpace(string(body))
	var err error
	if trimmed == "" || trimmed == "null" {
		err = binding.Validator.ValidateStruct(in)
	} else {
		err = binding.JSON.BindBody([]byte(trimmed), in)
	}
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &validationErrors):
		return apperr.Validation("%s", FormatValidationError(validationErrors))
	case errors.As(err, &typeErr):
		if typeErr.Field != "" {
			return apperr.Validation("%s must be %s", typeErr.Field, jsonTypeName(typeErr.Type))
		}
		return apperr.Validation("input must be a JSON object")
	case errors.As(err, &syntaxErr):
		return apperr.Validation("request body is not valid JSON")
	}
	return apperr.Validation("%s", err.Error())
}

func jsonTypeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.Slice, reflect.Array:
		return "an array"
	}
	return "an object"
}
