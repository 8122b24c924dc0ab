package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNotFound indicates a referenced entity is absent
	ErrorTypeNotFound ErrorType = "NOT_FOUND"
	// ErrorTypeBadRequest indicates invalid input; no side effects happened
	ErrorTypeBadRequest ErrorType = "BAD_REQUEST"
	// ErrorTypeConflict indicates the operation conflicts with current state
	ErrorTypeConflict ErrorType = "CONFLICT"
	// ErrorTypeUnauthorized indicates the caller could not be authenticated
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	// ErrorTypeForbidden indicates forbidden access
	ErrorTypeForbidden ErrorType = "FORBIDDEN"
	// ErrorTypeInternal indicates an internal error
	ErrorTypeInternal ErrorType = "INTERNAL"
	// ErrorTypeTransaction indicates the database could not begin, commit or
	// roll back a transaction, or the transaction timed out
	ErrorTypeTransaction ErrorType = "TRANSACTION"
	// ErrorTypeExternalStore indicates an upload or delete against the blob
	// store failed
	ErrorTypeExternalStore ErrorType = "EXTERNAL_STORE"
	// ErrorTypeFinalize indicates the record update after a successful upload
	// failed
	ErrorTypeFinalize ErrorType = "FINALIZE"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error returns the error message
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new application error
func New(errorType ErrorType, message string) error {
	return &AppError{
		Type:    errorType,
		Message: message,
	}
}

// Wrap wraps an error with an application error
func Wrap(errorType ErrorType, message string, err error) error {
	return &AppError{
		Type:    errorType,
		Message: message,
		Err:     err,
	}
}

// NotFound creates a not found error
func NotFound(message string) error {
	return New(ErrorTypeNotFound, message)
}

// BadRequest creates a bad request error
func BadRequest(message string) error {
	return New(ErrorTypeBadRequest, message)
}

// Conflict creates a conflict error
func Conflict(message string) error {
	return New(ErrorTypeConflict, message)
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) error {
	return New(ErrorTypeUnauthorized, message)
}

// Forbidden creates a forbidden error
func Forbidden(message string) error {
	return New(ErrorTypeForbidden, message)
}

// Internal creates an internal error
func Internal(message string) error {
	return New(ErrorTypeInternal, message)
}

// Transaction wraps a backend transaction failure
func Transaction(message string, err error) error {
	return Wrap(ErrorTypeTransaction, message, err)
}

// ExternalStore wraps a blob store failure
func ExternalStore(message string, err error) error {
	return Wrap(ErrorTypeExternalStore, message, err)
}

// Finalize wraps a failure to finalize a record after an upload
func Finalize(message string, err error) error {
	return Wrap(ErrorTypeFinalize, message, err)
}

// TypeOf returns the type of the outermost AppError in the chain, or
// ErrorTypeInternal when there is none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

func is(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool { return is(err, ErrorTypeNotFound) }

// IsBadRequest checks if an error is a bad request error
func IsBadRequest(err error) bool { return is(err, ErrorTypeBadRequest) }

// IsConflict checks if an error is a conflict error
func IsConflict(err error) bool { return is(err, ErrorTypeConflict) }

// IsUnauthorized checks if an error is an unauthorized error
func IsUnauthorized(err error) bool { return is(err, ErrorTypeUnauthorized) }

// IsForbidden checks if an error is a forbidden error
func IsForbidden(err error) bool { return is(err, ErrorTypeForbidden) }

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool { return is(err, ErrorTypeInternal) }

// IsTransaction checks if an error is a transaction failure
func IsTransaction(err error) bool { return is(err, ErrorTypeTransaction) }

// IsExternalStore checks if an error is a blob store failure
func IsExternalStore(err error) bool { return is(err, ErrorTypeExternalStore) }

// IsFinalize checks if an error is a finalize failure
func IsFinalize(err error) bool { return is(err, ErrorTypeFinalize) }

// IsClientError reports whether the error is caused by the caller and may be
// shown to it verbatim.
func IsClientError(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeNotFound, ErrorTypeBadRequest, ErrorTypeConflict,
		ErrorTypeUnauthorized, ErrorTypeForbidden:
		return true
	default:
		return false
	}
}

// PublicMessage returns the message safe to show to callers. Server-side
// failures collapse to a generic message.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && IsClientError(err) {
		return appErr.Message
	}
	return "internal server error"
}

// IsDuplicateError checks if an error is a duplicate key error
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "UNIQUE constraint") ||
		strings.Contains(errStr, "duplicate entry")
}
