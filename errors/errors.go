package errors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies failures surfaced to API clients.
type ErrorCode string

const (
	// Validation errors
	ErrCodeInvalidAddress ErrorCode = "INVALID_ADDRESS"
	ErrCodeInvalidAmount  ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidCode    ErrorCode = "INVALID_CODE"

	// Business errors
	ErrCodeUnknownCode   ErrorCode = "UNKNOWN_CODE"
	ErrCodeSelfReferral  ErrorCode = "SELF_REFERRAL"
	ErrCodeNotRegistered ErrorCode = "NOT_REGISTERED"
	ErrCodeCodeCollision ErrorCode = "CODE_COLLISION"

	// Infrastructure errors
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeTimeout      ErrorCode = "TIMEOUT"
	ErrCodeStorageError ErrorCode = "STORAGE_ERROR"
)

// AppError carries a machine-readable code alongside the message shown to
// clients. Infrastructure codes map to 5xx at the controller layer, the rest
// to 400.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError builds an AppError wrapping err (err may be nil).
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// GetAppError extracts an AppError from err, or nil.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Code == code
}

// IsClientError reports whether the code should be surfaced as HTTP 400.
// CONFLICT is a 400 too: the retry budget is already spent server-side and
// the client decides whether to resubmit. CODE_COLLISION, TIMEOUT, and
// STORAGE_ERROR are server-side failures.
func (c ErrorCode) IsClientError() bool {
	switch c {
	case ErrCodeTimeout, ErrCodeStorageError, ErrCodeCodeCollision:
		return false
	}
	return true
}
