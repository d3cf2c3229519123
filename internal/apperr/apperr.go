// Package apperr defines the typed errors surfaced to API callers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidationFailed  Code = "VALIDATION_FAILED"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeTransactionFailed Code = "TRANSACTION_FAILED"
	CodePersistenceFailed Code = "PERSISTENCE_FAILED"
	CodeConflict          Code = "CONFLICT"
	CodeDependencyFailure Code = "DEPENDENCY_FAILURE"
	CodeInternalError     Code = "INTERNAL_ERROR"
)

// AppError carries a stable code, a caller-facing message and optional
// details. Err is the wrapped cause and is never rendered to callers.
type AppError struct {
	Code          Code
	Message       string
	Details       any
	TransactionID string
	Err           error
	HTTPStatus    int
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code Code, message string, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Err:        err,
		HTTPStatus: statusFor(code),
	}
}

func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithTransaction(id string) *AppError {
	e.TransactionID = id
	return e
}

// Validation reports bad caller input. No side effects have happened.
func Validation(message string) *AppError {
	return New(CodeValidationFailed, message, nil)
}

func Unauthorized(message string, err error) *AppError {
	return New(CodeUnauthorized, message, err)
}

// MutationFailed reports a balance leg rejected or unreachable upstream.
func MutationFailed(txID string, details any, err error) *AppError {
	return New(CodeTransactionFailed, "Transaction failed", err).WithDetails(details).WithTransaction(txID)
}

// Persistence reports a ledger write failure. External balance effects
// already applied are not rolled back.
func Persistence(txID string, err error) *AppError {
	return New(CodePersistenceFailed, "Transaction failed", err).WithTransaction(txID)
}

func Internal(message string, err error) *AppError {
	return New(CodeInternalError, message, err)
}

// As extracts an *AppError from err, wrapping anything else as internal.
func As(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("Internal server error", err)
}

func statusFor(code Code) int {
	switch code {
	case CodeValidationFailed:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeTransactionFailed:
		// a rejected leg is reported as a bad request, not an upstream fault
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	case CodeDependencyFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
