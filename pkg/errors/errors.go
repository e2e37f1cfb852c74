package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes form the closed taxonomy used across the service. Retry and
// HTTP-status decisions key off the code, never off the message text.
const (
	CodeValidation        = "ValidationError"
	CodeConflict          = "ConflictError"
	CodeInvalidTransition = "InvalidTransitionError"
	CodeTransient         = "TransientError"
	CodeAuth              = "AuthError"
	CodeNotFound          = "NotFound"
	CodeDatabase          = "DatabaseError"
	CodeBroker            = "BrokerConnectionError"
	CodeSerialization     = "SerializationError"
	CodeInternal          = "InternalError"
)

// StandardError represents a standardized error response
type StandardError struct {
	Code    string `json:"error"`   // Error code/type (e.g., "ValidationError", "ConflictError")
	Message string `json:"message"` // Human-readable error message
	Details string `json:"details"` // Additional details (field name, plan id, attempt number, etc.)
}

// Error implements the error interface
func (e *StandardError) Error() string {
	return e.Message
}

// HTTPStatus returns the appropriate HTTP status code for the error
func (e *StandardError) HTTPStatus() int {
	switch e.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeConflict, CodeInvalidTransition:
		return http.StatusConflict
	case CodeAuth:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTransient, CodeBroker:
		return http.StatusServiceUnavailable
	case CodeSerialization, CodeDatabase, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// NewStandardError creates a new StandardError
func NewStandardError(code, message, details string) *StandardError {
	return &StandardError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Common error constructors

func NewValidationError(message, field string) *StandardError {
	return NewStandardError(CodeValidation, message, fmt.Sprintf("Field: %s", field))
}

func NewConflictError(message, itemID string) *StandardError {
	return NewStandardError(CodeConflict, message, fmt.Sprintf("Item ID: %s", itemID))
}

func NewInvalidTransitionError(planID, from, attempted string) *StandardError {
	return NewStandardError(CodeInvalidTransition, "invalid plan transition",
		fmt.Sprintf("Plan ID: %s, Status: %s, Attempted: %s", planID, from, attempted))
}

func NewTransientError(message string, err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return NewStandardError(CodeTransient, message, details)
}

func NewAuthError(message string) *StandardError {
	return NewStandardError(CodeAuth, message, "")
}

func NewNotFound(resource, id string) *StandardError {
	return NewStandardError(CodeNotFound, resource+" not found", fmt.Sprintf("ID: %s", id))
}

func NewDatabaseError(operation string, err error) *StandardError {
	return NewStandardError(CodeDatabase, fmt.Sprintf("database operation failed: %s", operation), err.Error())
}

func NewBrokerConnectionError(message string, err error) *StandardError {
	return NewStandardError(CodeBroker, message, err.Error())
}

func NewSerializationError(message string, err error) *StandardError {
	return NewStandardError(CodeSerialization, message, err.Error())
}

func NewInternalError(message string, err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return NewStandardError(CodeInternal, message, details)
}

// Code extracts the taxonomy code from any error. Non-standard errors are
// classified as InternalError.
func Code(err error) string {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeInternal
}

// IsTransient reports whether the error should be retried under the backoff
// policy. Only timeouts, rate limits and broker faults qualify; validation,
// conflict and auth failures are surfaced immediately.
func IsTransient(err error) bool {
	switch Code(err) {
	case CodeTransient, CodeBroker:
		return true
	default:
		return false
	}
}

// IsCode reports whether err carries the given taxonomy code.
func IsCode(err error, code string) bool {
	return Code(err) == code
}
