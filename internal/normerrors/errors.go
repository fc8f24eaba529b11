// Package normerrors defines the typed errors shared across the normalizer.
// Each type matches its sentinel through errors.Is regardless of field values,
// and may carry an underlying cause reachable through errors.Unwrap.
package normerrors

import "errors"

// Sentinels for errors.Is.
var (
	// ErrConfig covers missing credentials, files and dictionary sheets. Runs abort before doing work.
	ErrConfig = &ConfigError{}
	// ErrValidation covers rejected corpus rows and request fields.
	ErrValidation = &ValidationError{}
	// ErrNotFound covers missing or empty collections.
	ErrNotFound = &NotFoundError{}
)

// Process exit codes by error kind (sysexits.h).
const (
	ExitFailure    = 1
	ExitDataErr    = 65
	ExitNoInput    = 66
	ExitConfigFail = 78
)

// ConfigError reports a configuration problem under Key.
type ConfigError struct {
	Key     string
	Message string
	Err     error
}

func NewConfigError(key, message string) *ConfigError {
	return &ConfigError{Key: key, Message: message}
}

// WithCause attaches the underlying error.
func (e *ConfigError) WithCause(err error) *ConfigError {
	e.Err = err

	return e
}

func (e *ConfigError) Error() string {
	return describe(e.Message, "invalid configuration", e.Key)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Is(target error) bool {
	_, ok := target.(*ConfigError)

	return ok
}

// ValidationError reports invalid input in Field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// WithCause attaches the underlying error.
func (e *ValidationError) WithCause(err error) *ValidationError {
	e.Err = err

	return e
}

func (e *ValidationError) Error() string {
	if e.Message == "" && e.Field == "" {
		return "validation error"
	}

	return describe(e.Message, "validation failed for field", e.Field)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)

	return ok
}

// NotFoundError reports a missing Resource.
type NotFoundError struct {
	Resource string
	Message  string
	Err      error
}

func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{Resource: resource, Message: message}
}

// WithCause attaches the underlying error.
func (e *NotFoundError) WithCause(err error) *NotFoundError {
	e.Err = err

	return e
}

func (e *NotFoundError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Resource != "":
		return e.Resource + " not found"
	default:
		return "resource not found"
	}
}

func (e *NotFoundError) Unwrap() error { return e.Err }

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)

	return ok
}

// ExitCode maps err to the exit status of the termnorm command.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrConfig):
		return ExitConfigFail
	case errors.Is(err, ErrNotFound):
		return ExitNoInput
	case errors.Is(err, ErrValidation):
		return ExitDataErr
	default:
		return ExitFailure
	}
}

func describe(message, prefix, subject string) string {
	switch {
	case message != "":
		return message
	case subject != "":
		return prefix + ": " + subject
	default:
		return prefix
	}
}
