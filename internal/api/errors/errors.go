// Package errors provides structured error types and response helpers for
// the step server.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"

	"github.com/narvanalabs/zapper/internal/models"
)

// Error codes for structured API responses.
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeBadRequest      = "BAD_REQUEST"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeUnavailable     = "UNAVAILABLE"
	CodeScanFailed      = "SCAN_FAILED"
	CodeInternalError   = "INTERNAL_ERROR"
)

// APIError represents a structured API error response.
type APIError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithDetails returns a copy of the error with additional details.
func (e *APIError) WithDetails(details map[string]any) *APIError {
	c := *e
	c.Details = details
	return &c
}

// WithRequestID returns a copy of the error with the request ID set.
func (e *APIError) WithRequestID(requestID string) *APIError {
	c := *e
	c.RequestID = requestID
	return &c
}

// New creates a new APIError with the given code and message.
func New(code, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// NewBadRequestError creates a bad request error.
func NewBadRequestError(message string) *APIError {
	return New(CodeBadRequest, message)
}

// NewUnauthorizedError creates an unauthorized error.
func NewUnauthorizedError(message string) *APIError {
	return New(CodeUnauthorized, message)
}

// NewUnavailableError creates a service unavailable error.
func NewUnavailableError(message string) *APIError {
	return New(CodeUnavailable, message)
}

// NewInternalError creates an internal server error.
func NewInternalError(message string) *APIError {
	return New(CodeInternalError, message)
}

// HTTPStatusCode returns the appropriate HTTP status code for the error.
func (e *APIError) HTTPStatusCode() int {
	switch e.Code {
	case CodeValidationError, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeScanFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteError writes an APIError as a JSON response.
func WriteError(w http.ResponseWriter, err *APIError) {
	WriteJSON(w, err.HTTPStatusCode(), err)
}

// ValidationErrors is a collection of field-level validation errors.
type ValidationErrors []models.ValidationError

// FromError collects every models.ValidationError in err, including those
// joined with errors.Join.
func FromError(err error) ValidationErrors {
	var out ValidationErrors
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		var verr *models.ValidationError
		if stderrors.As(e, &verr) && verr == e {
			out = append(out, *verr)
			return
		}
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
			return
		}
		if stderrors.As(e, &verr) {
			out = append(out, *verr)
		}
	}
	walk(err)
	return out
}

// ToAPIError converts validation errors to an APIError with field details.
func (v ValidationErrors) ToAPIError() *APIError {
	if len(v) == 0 {
		return New(CodeValidationError, "validation failed")
	}

	message := v[0].Message
	if len(v) > 1 {
		message = fmt.Sprintf("%s (and %d more errors)", message, len(v)-1)
	}
	return &APIError{
		Code:    CodeValidationError,
		Message: message,
		Details: map[string]any{"fields": []models.ValidationError(v)},
	}
}

// ErrorLogEntry is a structured error log entry.
type ErrorLogEntry struct {
	CorrelationID string `json:"correlation_id"`
	ErrorCode     string `json:"error_code"`
	Message       string `json:"message"`
	StackTrace    string `json:"stack_trace"`
}

// NewErrorLogEntry creates a log entry capturing the current stack.
func NewErrorLogEntry(correlationID, errorCode, message string) *ErrorLogEntry {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return &ErrorLogEntry{
		CorrelationID: correlationID,
		ErrorCode:     errorCode,
		Message:       message,
		StackTrace:    string(buf[:n]),
	}
}

// ToSlogAttrs returns the entry as slog attributes.
func (e *ErrorLogEntry) ToSlogAttrs() []any {
	return []any{
		"correlation_id", e.CorrelationID,
		"error_code", e.ErrorCode,
		"message", e.Message,
		"stack_trace", e.StackTrace,
	}
}
