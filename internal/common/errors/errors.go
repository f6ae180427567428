// Package errors provides the standardized error taxonomy of the agent service.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Runtime
	ErrCodeToolNotFound      ErrorCode = "TOOL_NOT_FOUND"
	ErrCodeSchemaMismatch    ErrorCode = "SCHEMA_MISMATCH"
	ErrCodeValidationFailure ErrorCode = "VALIDATION_FAILURE"
	ErrCodeInvalidRequest    ErrorCode = "INVALID_REQUEST"

	// Collaborators
	ErrCodeProviderUnavailable   ErrorCode = "PROVIDER_UNAVAILABLE"
	ErrCodeProviderTimeout       ErrorCode = "PROVIDER_TIMEOUT"
	ErrCodeRecommendationFailed  ErrorCode = "RECOMMENDATION_FAILED"
	ErrCodeRecommendationTimeout ErrorCode = "RECOMMENDATION_TIMEOUT"

	// Storage
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrCodeCacheError    ErrorCode = "CACHE_ERROR"
	ErrCodeSearchFailed  ErrorCode = "SEARCH_QUERY_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata returns e with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// ==========================
// 2. Error Constructors
// ==========================

// NewToolNotFoundError is raised when a planned step names a tool that is not registered.
func NewToolNotFoundError(tool string) *StandardError {
	return newError(ErrCodeToolNotFound, "Tool not registered", tool, false, nil).
		WithMetadata("tool", tool)
}

// NewSchemaMismatchError is raised when a tool input or output violates its declared schema.
func NewSchemaMismatchError(tool, direction string, problems []string) *StandardError {
	return newError(ErrCodeSchemaMismatch, fmt.Sprintf("Tool %s violates its %s schema", tool, direction),
		strings.Join(problems, "; "), false, nil).
		WithMetadata("tool", tool).
		WithMetadata("direction", direction)
}

// NewValidationFailureError is raised when the critic rejects an assembled result.
func NewValidationFailureError(message, hint string) *StandardError {
	return newError(ErrCodeValidationFailure, message, hint, false, nil)
}

func NewInvalidRequestError(details string) *StandardError {
	return newError(ErrCodeInvalidRequest, "Invalid request", details, false, nil)
}

// NewProviderUnavailableError wraps a transport failure of a listing source.
func NewProviderUnavailableError(provider string, err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return newError(ErrCodeProviderUnavailable, "Listing provider unavailable", details, true, err).
		WithMetadata("provider", provider)
}

func NewProviderTimeoutError(provider string, err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return newError(ErrCodeProviderTimeout, "Listing provider timed out", details, true, err).
		WithMetadata("provider", provider)
}

func NewRecommendationFailedError(err error) *StandardError {
	return newError(ErrCodeRecommendationFailed, "Recommendation generation failed", err.Error(), true, err)
}

func NewRecommendationTimeoutError() *StandardError {
	return newError(ErrCodeRecommendationTimeout, "Recommendation generation timed out", "", true, nil)
}

func NewDatabaseError(op string, err error) *StandardError {
	return newError(ErrCodeDatabaseError, "Database operation failed", err.Error(), true, err).
		WithMetadata("operation", op)
}

func NewCacheError(op string, err error) *StandardError {
	return newError(ErrCodeCacheError, "Cache operation failed", err.Error(), true, err).
		WithMetadata("operation", op)
}

func NewSearchFailedError(index string, err error) *StandardError {
	return newError(ErrCodeSearchFailed, "Search query failed", err.Error(), true, err).
		WithMetadata("index", index)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// ==========================
// 3. Inspection Helpers
// ==========================

// AsStandard finds the first StandardError in err's chain.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandard(err)
	return ok && stdErr.Code == code
}

// Normalize always yields a StandardError, wrapping foreign errors as INTERNAL_ERROR.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	if stdErr, ok := AsStandard(err); ok {
		return stdErr
	}
	return NewInternalError(err)
}

func IsRetryable(err error) bool {
	stdErr, ok := AsStandard(err)
	return ok && stdErr.Retryable
}

// HTTPStatus maps an error code onto the status returned at the HTTP boundary.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrCodeValidationFailure:
		return http.StatusUnprocessableEntity
	case ErrCodeProviderUnavailable, ErrCodeRecommendationFailed:
		return http.StatusBadGateway
	case ErrCodeProviderTimeout, ErrCodeRecommendationTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeDatabaseError, ErrCodeCacheError, ErrCodeSearchFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TOOL") || strings.Contains(codeStr, "SCHEMA"):
		return "RUNTIME"
	case strings.Contains(codeStr, "PROVIDER"):
		return "PROVIDER"
	case strings.Contains(codeStr, "RECOMMENDATION"):
		return "AI"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "CACHE") || strings.Contains(codeStr, "SEARCH"):
		return "STORAGE"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
