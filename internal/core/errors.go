package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation  ErrorCategory = "validation"  // Rejected input
	ErrCatNotFound    ErrorCategory = "not_found"   // Missing project or checkpoint
	ErrCatConflict    ErrorCategory = "conflict"    // Project busy
	ErrCatState       ErrorCategory = "state"       // Invalid workflow transition
	ErrCatPersistence ErrorCategory = "persistence" // Store failure
	ErrCatProvider    ErrorCategory = "provider"    // Search or LLM backend failure
	ErrCatConfig      ErrorCategory = "config"      // Invalid configuration
	ErrCatInternal    ErrorCategory = "internal"    // Anything else
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches on category and code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func newError(cat ErrorCategory, code, message string, retryable bool) *DomainError {
	return &DomainError{Category: cat, Code: code, Message: message, Retryable: retryable}
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return newError(ErrCatValidation, code, message, false)
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return newError(ErrCatNotFound, CodeNotFound, fmt.Sprintf("%s not found: %s", resource, id), false).
		WithDetail("resource", resource)
}

// ErrConflict creates a conflict error.
func ErrConflict(code, message string) *DomainError {
	return newError(ErrCatConflict, code, message, false)
}

// ErrState creates a state error.
func ErrState(code, message string) *DomainError {
	return newError(ErrCatState, code, message, false)
}

// ErrPersistence wraps a store failure.
func ErrPersistence(op string, cause error) *DomainError {
	return newError(ErrCatPersistence, CodePersistenceFailed, op+" failed", true).WithCause(cause)
}

// ErrProvider wraps a search or generation backend failure.
func ErrProvider(provider, message string) *DomainError {
	return newError(ErrCatProvider, CodeProviderFailed, message, true).WithDetail("provider", provider)
}

// ErrConfig creates a configuration error.
func ErrConfig(message string) *DomainError {
	return newError(ErrCatConfig, CodeInvalidConfig, message, false)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// Predefined error codes
const (
	CodeNotFound          = "NOT_FOUND"
	CodeProjectRunning    = "PROJECT_RUNNING"
	CodeUnknownAction     = "UNKNOWN_ACTION"
	CodeStepLimit         = "STEP_LIMIT_EXCEEDED"
	CodePersistenceFailed = "PERSISTENCE_FAILED"
	CodeProviderFailed    = "PROVIDER_FAILED"
	CodeInvalidConfig     = "INVALID_CONFIG"
	CodeInvalidRequest    = "INVALID_REQUEST"

	// Topic validation codes
	CodeTopicEmpty      = "TOPIC_EMPTY"
	CodeTopicTooShort   = "TOPIC_TOO_SHORT"
	CodeTopicTooLong    = "TOPIC_TOO_LONG"
	CodeTopicNonTextual = "TOPIC_NON_TEXTUAL"
	CodeInvalidMode     = "INVALID_MODE"
)
