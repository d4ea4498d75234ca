package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application
var (
	ErrNotFound         = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists    = new(ErrCodeAlreadyExists, "resource already exists")
	ErrValidation       = new(ErrCodeValidation, "validation error")
	ErrInvalidOperation = new(ErrCodeInvalidOperation, "invalid operation")
	ErrDatabase         = new(ErrCodeDatabase, "database error")
	ErrSystem           = new(ErrCodeSystemError, "system error")

	// ErrRetryable marks a transient upstream failure (catalog plugin) that
	// may be retried per an explicit delay list or bounded backoff
	ErrRetryable = new(ErrCodeRetryable, "retryable upstream error")
	// ErrDoubleBilling marks an unrecoverable inconsistency where the same
	// service period would be charged twice for a subscription
	ErrDoubleBilling = new(ErrCodeDoubleBilling, "double billing detected")
	// ErrAccountParked marks an account suspended after an unrecoverable
	// reconciliation inconsistency
	ErrAccountParked = new(ErrCodeAccountParked, "account is parked")
	// ErrVoidBlocked marks a rejected invoice void request; the reason code is
	// carried in the error details
	ErrVoidBlocked = new(ErrCodeVoidBlocked, "invoice void blocked")

	// maps errors to http status codes
	statusCodeMap = map[error]int{
		ErrNotFound:         http.StatusNotFound,
		ErrAlreadyExists:    http.StatusConflict,
		ErrValidation:       http.StatusBadRequest,
		ErrInvalidOperation: http.StatusBadRequest,
		ErrDatabase:         http.StatusInternalServerError,
		ErrSystem:           http.StatusInternalServerError,
		ErrRetryable:        http.StatusServiceUnavailable,
		ErrDoubleBilling:    http.StatusConflict,
		ErrAccountParked:    http.StatusConflict,
		ErrVoidBlocked:      http.StatusConflict,
	}
)

const (
	ErrCodeNotFound         = "not_found"
	ErrCodeAlreadyExists    = "already_exists"
	ErrCodeValidation       = "validation_error"
	ErrCodeInvalidOperation = "invalid_operation"
	ErrCodeDatabase         = "database_error"
	ErrCodeSystemError      = "system_error"
	ErrCodeRetryable        = "retryable_error"
	ErrCodeDoubleBilling    = "double_billing"
	ErrCodeAccountParked    = "account_parked"
	ErrCodeVoidBlocked      = "void_blocked"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Op      string // Logical operation name
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

// new creates a new InternalError
func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidOperation checks if an error is an invalid operation error
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsRetryable checks if an error is a transient upstream error
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRetryable)
}

// IsDoubleBilling checks if an error is an unrecoverable double-billing error
func IsDoubleBilling(err error) bool {
	return errors.Is(err, ErrDoubleBilling)
}

// IsVoidBlocked checks if an error is a rejected invoice void
func IsVoidBlocked(err error) bool {
	return errors.Is(err, ErrVoidBlocked)
}

func HTTPStatusFromErr(err error) int {
	for e, status := range statusCodeMap {
		if errors.Is(err, e) {
			return status
		}
	}
	return http.StatusInternalServerError
}
