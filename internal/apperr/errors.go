package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeInvalidTransition  Code = "INVALID_TRANSITION"
	CodeNotAuthorized      Code = "NOT_AUTHORIZED"
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeNotFound           Code = "NOT_FOUND"
	CodeVersionConflict    Code = "VERSION_CONFLICT"
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
)

type BusinessError struct {
	Code    Code
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{Key: key, Payload: payload}
}

func New(code Code, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}
	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}
	return busErr
}

// Wrap attaches cause to a new business error.
func Wrap(code Code, message string, cause error, details ...Detail) *BusinessError {
	busErr := New(code, message, details...)
	busErr.Err = cause
	return busErr
}

func NewNotFound(resource string, id string) *BusinessError {
	return New(CodeNotFound, fmt.Sprintf("%s %s not found", resource, id),
		ToDetail("resource", resource),
		ToDetail("id", id),
	)
}

func NewValidationError(field, reason string) *BusinessError {
	return New(CodeValidation, fmt.Sprintf("invalid value of field '%s': %s", field, reason),
		ToDetail("field", field),
		ToDetail("reason", reason),
	)
}

func NewInvalidTransition(status, action fmt.Stringer) *BusinessError {
	return New(CodeInvalidTransition, fmt.Sprintf("action %s is not allowed from status %s", action, status),
		ToDetail("status", status.String()),
		ToDetail("action", action.String()),
	)
}

func NewNotAuthorized(action fmt.Stringer, required string) *BusinessError {
	return New(CodeNotAuthorized, fmt.Sprintf("action %s requires role %s", action, required),
		ToDetail("action", action.String()),
		ToDetail("required_role", required),
	)
}

func NewServiceUnavailable(operation string, cause error) *BusinessError {
	return Wrap(CodeServiceUnavailable, fmt.Sprintf("%s is unavailable", operation), cause,
		ToDetail("operation", operation),
	)
}

// CodeOf returns the code of the first BusinessError in err's chain, or "".
func CodeOf(err error) Code {
	var busErr *BusinessError
	if errors.As(err, &busErr) {
		return busErr.Code
	}
	return ""
}

func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
