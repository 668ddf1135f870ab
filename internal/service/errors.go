package service

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Domain-level error values returned by the services.
var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrDuplicateUsername  = errors.New("duplicate username")
	ErrDuplicateCode      = errors.New("duplicate gift code")
	ErrInvalidCodeType    = errors.New("gift code type does not allow this operation")
	ErrTooManyAttempts    = errors.New("too many login attempts")
	ErrMFARequired        = errors.New("second factor required")
	ErrMFANotPending      = errors.New("no pending totp enrollment")

	// ErrInvalidRole is a validation failure for an unknown account role.
	ErrInvalidRole = fmt.Errorf("%w: unknown role", ErrValidation)
)

// OperationError wraps a store failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}

func validationError(detail string) error {
	return fmt.Errorf("%w: %s", ErrValidation, detail)
}

// exceeds reports whether value is longer than limit characters.
func exceeds(value string, limit int) bool {
	return utf8.RuneCountInString(value) > limit
}
