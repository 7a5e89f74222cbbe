// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrTimeout          = errors.New("operation timed out")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrDataNotFound     = errors.New("data not found")
	ErrPollInFlight     = errors.New("a poll for this job is already in flight")
	ErrNoJobID          = errors.New("backtest service returned no job id")
	ErrMalformedBody    = errors.New("malformed response body")
	ErrConnectionFailed = errors.New("connection failed")
)

// ServiceError represents a non-2xx response from the backtest service.
// Body carries the raw diagnostic text for display.
type ServiceError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backtest service error [%d]: %s: %v", e.StatusCode, e.Body, e.Err)
	}
	return fmt.Sprintf("backtest service error [%d]: %s", e.StatusCode, e.Body)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(statusCode int, body string, err error) *ServiceError {
	return &ServiceError{
		StatusCode: statusCode,
		Body:       body,
		Err:        err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}
