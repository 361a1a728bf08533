package generate

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	llmclient "stratify/internal/llmclient"
)

// Code is the stable error taxonomy exposed to API clients.
type Code string

const (
	CodeInvalidInput     Code = "INVALID_INPUT"
	CodeTimeout          Code = "TIMEOUT"
	CodeRateLimited      Code = "RATE_LIMITED"
	CodeCircuitOpen      Code = "CIRCUIT_OPEN"
	CodeValidationFailed Code = "VALIDATION_FAILED"
	CodeParseError       Code = "PARSE_ERROR"
	CodeAPIError         Code = "API_ERROR"
	CodeInternal         Code = "INTERNAL_ERROR"
)

// Error carries a taxonomy code alongside the underlying cause and the
// section it occurred in (empty for pipeline-level failures).
type Error struct {
	Code    Code
	Section string
	Err     error
}

func (e *Error) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("%s [%s]: %v", e.Code, e.Section, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with a taxonomy code.
func NewError(code Code, section string, err error) *Error {
	return &Error{Code: code, Section: section, Err: err}
}

// CodeOf extracts the taxonomy code from err, defaulting to INTERNAL_ERROR.
func CodeOf(err error) Code {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CodeTimeout
	}
	if _, ok := llmclient.AsRateLimited(err); ok {
		return CodeRateLimited
	}
	if errors.Is(err, llmclient.ErrInvalidJSON) {
		return CodeParseError
	}
	return CodeInternal
}

// Retryable reports whether an error with this code may resolve on retry.
// Caller errors and schema failures never do; a fresh generation for a
// VALIDATION_FAILED response often does.
func (c Code) Retryable() bool {
	switch c {
	case CodeTimeout, CodeRateLimited, CodeAPIError, CodeValidationFailed, CodeParseError:
		return true
	default:
		return false
	}
}

// HTTPStatus maps a taxonomy code to the response status for the
// non-streaming API.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeCircuitOpen:
		return http.StatusServiceUnavailable
	case CodeValidationFailed, CodeParseError, CodeAPIError, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
