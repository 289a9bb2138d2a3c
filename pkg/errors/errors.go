// Package errors defines common error types for the application.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the application.
const (
	CodeUnknown        = "UNKNOWN_ERROR"
	CodeInvalidInput   = "INVALID_INPUT"
	CodeConfigError    = "CONFIG_ERROR"
	CodeContainerError = "CONTAINER_ERROR"
	CodeParseFailed    = "PARSE_FAILED"
	CodeNotRecord      = "NOT_A_RECORD"
	CodeEntryTooLarge  = "ENTRY_TOO_LARGE"
	CodeDecodeFailed   = "DECODE_FAILED"
	CodeUnsupported    = "UNSUPPORTED"
	CodeIOError        = "IO_ERROR"
	CodeTimeout        = "TIMEOUT_ERROR"
	CodeCancelled      = "CANCELLED"
)

// AppError represents an application error with a code and message.
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error instances.
var (
	ErrInvalidInput      = New(CodeInvalidInput, "invalid input")
	ErrConfigError       = New(CodeConfigError, "configuration error")
	ErrContainer         = New(CodeContainerError, "container unreadable")
	ErrNoIdentity        = New(CodeParseFailed, "no identity found")
	ErrNotRecord         = New(CodeNotRecord, "not a record")
	ErrEntryTooLarge     = New(CodeEntryTooLarge, "entry exceeds size cap")
	ErrDecodeFailed      = New(CodeDecodeFailed, "pixel decode failed")
	ErrUnsupportedLayout = New(CodeUnsupported, "unsupported pixel layout")
	ErrTimeout           = New(CodeTimeout, "operation timeout")
	ErrCancelled         = New(CodeCancelled, "operation cancelled")
)

// IsContainerError checks if the error is a container error.
func IsContainerError(err error) bool {
	return errors.Is(err, ErrContainer)
}

// IsParseFailed checks if the error is an identity parse failure.
func IsParseFailed(err error) bool {
	return errors.Is(err, ErrNoIdentity)
}

// IsEntryTooLarge checks if the error is a size-cap violation.
func IsEntryTooLarge(err error) bool {
	return errors.Is(err, ErrEntryTooLarge)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetErrorMessage extracts the error message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
