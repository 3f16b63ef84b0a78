package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so wrapped copies compare equal to the sentinels.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound          = NewDomainError("NOT_FOUND", "Entity not found")
	ErrInvalidInput      = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrNotMutable        = NewDomainError("SECURITY", "Field is not mutable")
	ErrFormat            = NewDomainError("FORMAT", "Value cannot be converted to the field type")
	ErrUnsupported       = NewDomainError("UNSUPPORTED", "Operation is not supported")
	ErrFieldNotAvailable = NewDomainError("FIELD_NOT_AVAILABLE", "Field is not available on the entity")
)

// ErrorKind classifies a ServiceError for callers that need to react to it.
type ErrorKind string

const (
	KindSecurity    ErrorKind = "SECURITY"
	KindNotFound    ErrorKind = "NOT_FOUND"
	KindFormat      ErrorKind = "FORMAT"
	KindUnsupported ErrorKind = "UNSUPPORTED"
	KindUnexpected  ErrorKind = "UNEXPECTED"
)

// ServiceError is the single error surfaced at an operation boundary. It keeps
// the original cause so errors.Is and errors.As reach the underlying failure.
type ServiceError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

// Unwrap returns the original cause
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// NewServiceError wraps cause in a ServiceError, classifying it by the domain
// error it carries.
func NewServiceError(message string, cause error) *ServiceError {
	return &ServiceError{
		Kind:    KindOf(cause),
		Message: message,
		Cause:   cause,
	}
}

// KindOf maps an error chain onto an ErrorKind. Errors that are already
// ServiceErrors keep their kind.
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	switch {
	case err == nil:
		return KindUnexpected
	case errors.Is(err, ErrNotMutable):
		return KindSecurity
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrFormat):
		return KindFormat
	case errors.Is(err, ErrUnsupported):
		return KindUnsupported
	default:
		return KindUnexpected
	}
}

// Wrapf annotates a domain sentinel with request specific detail while keeping
// it matchable with errors.Is.
func Wrapf(sentinel *DomainError, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel)
}
