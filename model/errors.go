package model

import (
	"errors"
	"fmt"
)

// Standard error codes.
const (
	ErrBadRequest      = "BAD_REQUEST"
	ErrUnauthorized    = "UNAUTHORIZED"
	ErrForbidden       = "FORBIDDEN"
	ErrNotFound        = "NOT_FOUND"
	ErrValidationError = "VALIDATION_ERROR"
	ErrInternalError   = "INTERNAL_ERROR"
	ErrUnavailable     = "SERVICE_UNAVAILABLE"
)

// Pipeline error codes.
const (
	// ErrMalformedBlock marks one structural block that failed to parse. It is
	// contained at the block boundary and never aborts a whole parse.
	ErrMalformedBlock = "MALFORMED_BLOCK"
	// ErrMissingRequiredData marks a parse that cannot produce renderable content.
	ErrMissingRequiredData = "MISSING_REQUIRED_DATA"
	// ErrRecursionLimitExceeded marks layout nesting deeper than the parser ceiling.
	ErrRecursionLimitExceeded = "RECURSION_LIMIT_EXCEEDED"
	// ErrUnsupportedModelVariant marks a model kind with no cache conversion path.
	ErrUnsupportedModelVariant = "UNSUPPORTED_MODEL_VARIANT"
)

// ErrorEnvelope is the standard error value returned by the runtime and the
// HTTP API. It implements the error interface.
type ErrorEnvelope struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
	TraceID string       `json:"trace_id,omitempty"`

	cause error
}

// Error implements the error interface.
func (e *ErrorEnvelope) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ErrorEnvelope) Unwrap() error {
	return e.cause
}

// FieldError describes a field-level validation error.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HasCode reports whether err is, or wraps, an ErrorEnvelope with the given code.
func HasCode(err error, code string) bool {
	var ee *ErrorEnvelope
	if !errors.As(err, &ee) {
		return false
	}
	return ee.Code == code
}

// NewBadRequestError returns a BAD_REQUEST error.
func NewBadRequestError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrBadRequest, Message: msg}
}

// NewUnauthorizedError returns an UNAUTHORIZED error.
func NewUnauthorizedError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrUnauthorized, Message: msg}
}

// NewForbiddenError returns a FORBIDDEN error.
func NewForbiddenError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrForbidden, Message: msg}
}

// NewNotFoundError returns a NOT_FOUND error.
func NewNotFoundError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrNotFound, Message: msg}
}

// NewValidationError returns a VALIDATION_ERROR with field-level details.
func NewValidationError(details []FieldError) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrValidationError,
		Message: "One or more fields are invalid",
		Details: details,
	}
}

// NewInternalError returns an INTERNAL_ERROR.
func NewInternalError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrInternalError,
		Message: "An unexpected error occurred",
	}
}

// NewUnavailableError returns a SERVICE_UNAVAILABLE error.
func NewUnavailableError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrUnavailable, Message: msg}
}

// NewMalformedBlockError returns a MALFORMED_BLOCK error for the named block.
func NewMalformedBlockError(block string, cause error) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrMalformedBlock,
		Message: fmt.Sprintf("block %q could not be parsed", block),
		cause:   cause,
	}
}

// NewMissingRequiredDataError returns a MISSING_REQUIRED_DATA error.
func NewMissingRequiredDataError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrMissingRequiredData, Message: msg}
}

// NewRecursionLimitError returns a RECURSION_LIMIT_EXCEEDED error.
func NewRecursionLimitError(depth, limit int) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrRecursionLimitExceeded,
		Message: fmt.Sprintf("layout nesting depth %d exceeds limit %d", depth, limit),
	}
}

// NewUnsupportedModelVariantError returns an UNSUPPORTED_MODEL_VARIANT error.
func NewUnsupportedModelVariantError(kind string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrUnsupportedModelVariant,
		Message: fmt.Sprintf("no cache conversion for model kind %q", kind),
	}
}
