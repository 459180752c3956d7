package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is a recoverable input error, shown next to the offending fields.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// ConfigurationError reports a missing or misbehaving collaborator.
// It is fatal to the operation that hit it and is never shown inline.
type ConfigurationError struct {
	Component string
	Err       error
}

func NewConfigurationError(component string, err error) error {
	return &ConfigurationError{Component: component, Err: err}
}

func (err ConfigurationError) Error() string {
	if err.Err == nil {
		return err.Component + " is not configured"
	}
	return err.Component + ": " + err.Err.Error()
}

func (err ConfigurationError) Unwrap() error { return err.Err }

// ExternalServiceError wraps a failed call to an external service.
type ExternalServiceError struct {
	Op  string
	Err error
}

func NewExternalServiceError(op string, err error) error {
	return &ExternalServiceError{Op: op, Err: err}
}

func (err ExternalServiceError) Error() string {
	return err.Op + ": " + err.Err.Error()
}

func (err ExternalServiceError) Unwrap() error { return err.Err }

// IsExternalServiceError reports whether err was caused by an *ExternalServiceError.
func IsExternalServiceError(err error) bool {
	_, ok := errors.Cause(err).(*ExternalServiceError)
	return ok
}

// IsConfigurationError reports whether err was caused by a *ConfigurationError.
func IsConfigurationError(err error) bool {
	_, ok := errors.Cause(err).(*ConfigurationError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
