// Package validation checks structs with go-playground/validator and decodes
// query strings with go-playground/form. The HTTP API and the corpus reader
// share it, so a rejected field reads the same in a 400 response and in a
// failed evaluate run.
package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/form/v4"
	"github.com/go-playground/validator/v10"

	"github.com/KoSuyeon/SKAI-project/internal/api/response"
	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
	"github.com/KoSuyeon/SKAI-project/internal/normerrors"
)

// Registered once in init; both are safe for concurrent use afterwards.
var (
	validate = validator.New(validator.WithRequiredStructEnabled())
	decoder  = form.NewDecoder()
)

// messages renders a failed tag; %[1]s is the field and %[2]s the tag parameter.
var messages = map[string]string{
	"required":      "%[1]s is required",
	"min":           "%[1]s must be at least %[2]s",
	"max":           "%[1]s must be at most %[2]s",
	"gte":           "%[1]s must be greater than or equal to %[2]s",
	"lte":           "%[1]s must be less than or equal to %[2]s",
	"no_null_bytes": "%[1]s must not contain NULL bytes",
}

func init() {
	validate.RegisterTagNameFunc(wireName)

	for tag, fn := range map[string]validator.Func{
		"category":      isCategory,
		"no_null_bytes": hasNoNullBytes,
	} {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			slog.Error("Failed to register validator", "tag", tag, "error", err)
		}
	}

	// Query strings may carry the Korean sheet label instead of the identifier.
	decoder.RegisterCustomTypeFunc(func(vals []string) (any, error) {
		if len(vals) == 0 || vals[0] == "" {
			return datatypes.Category(""), nil
		}

		c, err := datatypes.ParseCategory(vals[0])
		if err != nil {
			return nil, fmt.Errorf("decode category: %w", err)
		}

		return c, nil
	}, datatypes.Category(""))
}

// wireName reports fields under their json name, else their form name.
func wireName(f reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if name == "-" {
			return ""
		}

		if name != "" {
			return name
		}
	}

	return f.Name
}

// Error is a failed validation. It matches normerrors.ErrValidation and
// unwraps to validator.ValidationErrors.
type Error struct {
	fields validator.ValidationErrors
}

func (e *Error) Error() string {
	parts := make([]string, len(e.fields))
	for i, fe := range e.fields {
		parts[i] = describe(fe)
	}

	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *Error) Unwrap() error { return e.fields }

func (e *Error) Is(target error) bool {
	return errors.Is(normerrors.ErrValidation, target)
}

// Fields lists one entry per rejected field.
func (e *Error) Fields() []response.FieldError {
	out := make([]response.FieldError, len(e.fields))
	for i, fe := range e.fields {
		out[i] = response.FieldError{Field: fe.Field(), Message: describe(fe), Value: fe.Value()}
	}

	return out
}

func describe(fe validator.FieldError) string {
	if fe.Tag() == "category" {
		names := make([]string, 0, 4)
		for _, c := range datatypes.AllCategories() {
			names = append(names, c.String())
		}

		return fe.Field() + " must be one of: " + strings.Join(names, ", ")
	}

	if msg, ok := messages[fe.Tag()]; ok {
		return fmt.Sprintf(msg, fe.Field(), fe.Param())
	}

	return fe.Field() + " is invalid"
}

// ValidateStruct returns an *Error for field failures and passes other errors through.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fields validator.ValidationErrors
	if errors.As(err, &fields) {
		return &Error{fields: fields}
	}

	return fmt.Errorf("validate: %w", err)
}

// RespondValidationError writes a 400 problem; field details are included when err is an *Error.
func RespondValidationError(w http.ResponseWriter, err error) {
	p := response.NewProblem(http.StatusBadRequest, err.Error()).WithTitle("Validation Error")

	var verr *Error
	if errors.As(err, &verr) {
		p.WithErrors(verr.Fields()...)
	}

	p.Write(w)
}

// ValidateAndDecodeQueryParams decodes r's query string into dst and validates it.
// Undecodable values are reported as validation errors.
func ValidateAndDecodeQueryParams(r *http.Request, dst any) error {
	if err := decoder.Decode(dst, r.URL.Query()); err != nil {
		return normerrors.NewValidationError("query", "invalid query parameters: "+err.Error()).WithCause(err)
	}

	return ValidateStruct(dst)
}

// isCategory accepts Category values and any spelling ParseCategory knows.
func isCategory(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}

	if field.Type() == reflect.TypeFor[datatypes.Category]() {
		return datatypes.Category(field.String()).Valid()
	}

	_, err := datatypes.ParseCategory(field.String())

	return err == nil
}

func hasNoNullBytes(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() == reflect.Pointer {
		if field.IsNil() {
			return true
		}

		field = field.Elem()
	}

	return field.Kind() != reflect.String || !strings.Contains(field.String(), "\x00")
}
