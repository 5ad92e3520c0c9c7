package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the category of error for handling
type ErrorCategory string

const (
	CategoryClientError    ErrorCategory = "client_error"
	CategoryNotFound       ErrorCategory = "not_found"
	CategoryUnauthorized   ErrorCategory = "unauthorized"
	CategorySystemError    ErrorCategory = "system_error"
	CategoryNetworkError   ErrorCategory = "network_error"
	CategoryInvalidRequest ErrorCategory = "invalid_request"
)

// InnerError is the nested error detail some backends attach to their
// top-level error payload.
type InnerError struct {
	Code    string `json:"error_code,omitempty"`
	Message string `json:"message,omitempty"`
	Target  string `json:"target,omitempty"`
}

// ServiceError represents a failure returned by a downstream service
// call, carrying the HTTP status and the backend's structured error
// payload.
type ServiceError struct {
	StatusCode  int
	Code        string
	Message     string
	Target      string
	Source      string
	Inner       *InnerError
	IsRetriable bool
	Details     map[string]interface{}
}

func (e *ServiceError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s %d %s: %s (target: %s)", e.Source, e.StatusCode, e.Code, e.Message, e.Target)
	}
	return fmt.Sprintf("%s %d %s: %s", e.Source, e.StatusCode, e.Code, e.Message)
}

// Category classifies the error from its HTTP status.
func (e *ServiceError) Category() ErrorCategory {
	switch {
	case e.StatusCode == 404:
		return CategoryNotFound
	case e.StatusCode == 401 || e.StatusCode == 403:
		return CategoryUnauthorized
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return CategoryClientError
	case e.StatusCode >= 500:
		return CategorySystemError
	default:
		return CategoryNetworkError
	}
}

// NewServiceError creates a new service error
func NewServiceError(source string, statusCode int, code, message string) *ServiceError {
	return &ServiceError{
		Source:      source,
		StatusCode:  statusCode,
		Code:        code,
		Message:     message,
		IsRetriable: statusCode >= 500 || statusCode == 429,
		Details:     make(map[string]interface{}),
	}
}

// AsServiceError unwraps err into a ServiceError if one is present.
func AsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
