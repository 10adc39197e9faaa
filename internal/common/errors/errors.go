// Package errors provides standardized error handling for the chat gateway.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeConfiguration       ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeBackend             ErrorCode = "BACKEND_ERROR"
	ErrCodeBackendTimeout      ErrorCode = "BACKEND_TIMEOUT"
	ErrCodeMalformedExtraction ErrorCode = "MALFORMED_EXTRACTION"
	ErrCodeInvalidRequest      ErrorCode = "INVALID_REQUEST"
	ErrCodePayloadTooLarge     ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrCodeInternal            ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Retryable  bool                   `json:"retryable"`
	HTTPStatus int                    `json:"-"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	cause      error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// ==========================
// 2. Error Constructors
// ==========================

// NewConfigurationError reports a missing backend credential. The message is
// meant for the operator and never contains the credential itself.
func NewConfigurationError(details string) *StandardError {
	return &StandardError{
		Code:       ErrCodeConfiguration,
		Message:    "Missing LLM API key (set OPENAI_API_KEY)",
		Details:    details,
		Retryable:  false,
		HTTPStatus: http.StatusInternalServerError,
		Timestamp:  time.Now().UTC(),
	}
}

// NewBackendError carries the upstream status and message when the backend
// supplied one.
func NewBackendError(status int, message string, err error) *StandardError {
	if message == "" {
		message = "LLM request failed"
	}
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:       ErrCodeBackend,
		Message:    message,
		Details:    details,
		Retryable:  true,
		HTTPStatus: http.StatusInternalServerError,
		Metadata:   map[string]interface{}{"upstreamStatus": status},
		Timestamp:  time.Now().UTC(),
		cause:      err,
	}
}

func NewBackendTimeoutError(err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:       ErrCodeBackendTimeout,
		Message:    "LLM request timed out",
		Details:    details,
		Retryable:  true,
		HTTPStatus: http.StatusInternalServerError,
		Timestamp:  time.Now().UTC(),
		cause:      err,
	}
}

// NewMalformedExtractionError is logged only; callers degrade to zero
// recommendations instead of returning it.
func NewMalformedExtractionError(err error) *StandardError {
	return &StandardError{
		Code:       ErrCodeMalformedExtraction,
		Message:    "Recommendation marker could not be parsed",
		Details:    err.Error(),
		Retryable:  false,
		HTTPStatus: http.StatusOK,
		Timestamp:  time.Now().UTC(),
		cause:      err,
	}
}

func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:       ErrCodeInvalidRequest,
		Message:    "Invalid chat request",
		Details:    details,
		Retryable:  false,
		HTTPStatus: http.StatusBadRequest,
		Timestamp:  time.Now().UTC(),
	}
}

func NewPayloadTooLargeError(limit int64) *StandardError {
	return &StandardError{
		Code:       ErrCodePayloadTooLarge,
		Message:    "Request body too large",
		Details:    fmt.Sprintf("limit: %d bytes", limit),
		Retryable:  false,
		HTTPStatus: http.StatusRequestEntityTooLarge,
		Timestamp:  time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:       ErrCodeInternal,
		Message:    "Server error",
		Details:    details,
		Retryable:  false,
		HTTPStatus: http.StatusInternalServerError,
		Timestamp:  time.Now().UTC(),
		cause:      err,
	}
}

// ==========================
// 3. Helpers
// ==========================

// Normalize converts any error into a StandardError. Unknown errors become
// INTERNAL_ERROR.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// Status returns the HTTP status for an error code.
func (e *StandardError) Status() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsCode reports whether err is a StandardError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return stderrors.As(err, &stdErr) && stdErr.Code == code
}

// GetErrorCategory groups codes for metrics labels.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeConfiguration:
		return "configuration_error"
	case ErrCodeBackend, ErrCodeBackendTimeout:
		return "backend_error"
	case ErrCodeInvalidRequest, ErrCodePayloadTooLarge:
		return "invalid_request"
	default:
		return "internal_error"
	}
}
