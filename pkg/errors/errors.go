// Package errors defines common error types for the application.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the application.
const (
	CodeUnknown        = "UNKNOWN_ERROR"
	CodeConfigError    = "CONFIG_ERROR"
	CodeSpecError      = "SPEC_ERROR"
	CodeImageError     = "IMAGE_ERROR"
	CodeOrderFileError = "ORDER_FILE_ERROR"
	CodeHierarchyError = "HIERARCHY_ERROR"
	CodeGroupingError  = "GROUPING_ERROR"
	CodeTypeTagError   = "TYPE_TAG_ERROR"
	CodeDatabaseError  = "DATABASE_ERROR"
	CodeStorageError   = "STORAGE_ERROR"
	CodeInvalidInput   = "INVALID_INPUT"
	CodeNotFound       = "NOT_FOUND"
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

// Newf creates a new AppError with a formatted message.
func Newf(code string, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
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
	ErrConfigError    = New(CodeConfigError, "config error")
	ErrSpecError      = New(CodeSpecError, "model spec error")
	ErrImageError     = New(CodeImageError, "program image error")
	ErrOrderFileError = New(CodeOrderFileError, "interdex order file error")
	ErrHierarchyError = New(CodeHierarchyError, "hierarchy error")
	ErrGroupingError  = New(CodeGroupingError, "grouping error")
	ErrTypeTagError   = New(CodeTypeTagError, "type tag error")
	ErrDatabaseError  = New(CodeDatabaseError, "database error")
	ErrStorageError   = New(CodeStorageError, "storage error")
	ErrInvalidInput   = New(CodeInvalidInput, "invalid input")
	ErrNotFound       = New(CodeNotFound, "resource not found")
)

// IsSpecError checks if the error is a model spec error.
func IsSpecError(err error) bool {
	return errors.Is(err, ErrSpecError)
}

// IsImageError checks if the error is a program image error.
func IsImageError(err error) bool {
	return errors.Is(err, ErrImageError)
}

// IsOrderFileError checks if the error is an interdex order file error.
func IsOrderFileError(err error) bool {
	return errors.Is(err, ErrOrderFileError)
}

// IsDatabaseError checks if the error is a database error.
func IsDatabaseError(err error) bool {
	return errors.Is(err, ErrDatabaseError)
}

// IsStorageError checks if the error is a storage error.
func IsStorageError(err error) bool {
	return errors.Is(err, ErrStorageError)
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
