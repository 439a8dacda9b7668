// Package errors is the error taxonomy shared by services, repositories and
// HTTP handlers. Handlers map an AppError's Code onto a status; everything
// else becomes a 500.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes an AppError.
type ErrorCode string

const (
	ErrCodeUnauthenticated   ErrorCode = "unauthenticated" // no actor on the request
	ErrCodeUnauthorized      ErrorCode = "unauthorized"    // actor known, operation refused
	ErrCodeNotFound          ErrorCode = "not_found"
	ErrCodeValidation        ErrorCode = "validation"
	ErrCodeInvalidTransition ErrorCode = "invalid_transition"
	ErrCodeConflict          ErrorCode = "conflict"
	ErrCodeForeignKey        ErrorCode = "foreign_key"
	ErrCodeTransient         ErrorCode = "transient" // safe to retry as-is
	ErrCodeInternal          ErrorCode = "internal"
	ErrCodeTimeout           ErrorCode = "timeout"
	ErrCodeCanceled          ErrorCode = "canceled"
)

// TransitionDetails describes a rejected status change. ValidNext is empty
// when Current is terminal.
type TransitionDetails struct {
	Current   string
	Requested string
	ValidNext []string
}

// AppError carries a Code alongside the message. Field names the offending
// input for validation and conflict errors; Transition is only set for
// ErrCodeInvalidTransition.
type AppError struct {
	Code       ErrorCode
	Message    string
	Cause      error
	Field      string
	Transition *TransitionDetails
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// New returns an AppError with the given code.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Unauthenticated(message string) *AppError { return New(ErrCodeUnauthenticated, message) }
func Unauthorized(message string) *AppError    { return New(ErrCodeUnauthorized, message) }
func NotFound(message string) *AppError        { return New(ErrCodeNotFound, message) }
func Conflict(message string) *AppError        { return New(ErrCodeConflict, message) }
func Validation(message string) *AppError      { return New(ErrCodeValidation, message) }
func ForeignKey(message string) *AppError      { return New(ErrCodeForeignKey, message) }
func Internal(message string) *AppError        { return New(ErrCodeInternal, message) }

func Unauthorizedf(format string, args ...any) *AppError {
	return New(ErrCodeUnauthorized, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...any) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf(format, args...))
}

// ValidationField is a validation error attributed to one input field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// InvalidTransition copies details so callers may reuse their value.
func InvalidTransition(message string, details TransitionDetails) *AppError {
	return &AppError{Code: ErrCodeInvalidTransition, Message: message, Transition: &details}
}

// Transient wraps a retryable storage or network failure.
func Transient(err error, message string) *AppError {
	return &AppError{Code: ErrCodeTransient, Message: message, Cause: err}
}

// Wrap returns nil for a nil err.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

func asApp(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// GetCode returns "" for errors that are not AppErrors.
func GetCode(err error) ErrorCode {
	if e := asApp(err); e != nil {
		return e.Code
	}
	return ""
}

func GetField(err error) string {
	if e := asApp(err); e != nil {
		return e.Field
	}
	return ""
}

func GetTransition(err error) *TransitionDetails {
	if e := asApp(err); e != nil {
		return e.Transition
	}
	return nil
}

func IsUnauthenticated(err error) bool   { return GetCode(err) == ErrCodeUnauthenticated }
func IsUnauthorized(err error) bool      { return GetCode(err) == ErrCodeUnauthorized }
func IsNotFound(err error) bool          { return GetCode(err) == ErrCodeNotFound }
func IsConflict(err error) bool          { return GetCode(err) == ErrCodeConflict }
func IsValidation(err error) bool        { return GetCode(err) == ErrCodeValidation }
func IsInvalidTransition(err error) bool { return GetCode(err) == ErrCodeInvalidTransition }
func IsForeignKey(err error) bool        { return GetCode(err) == ErrCodeForeignKey }
func IsInternal(err error) bool          { return GetCode(err) == ErrCodeInternal }

// IsTransient reports whether the operation may be retried unchanged. Timeouts
// count as transient.
func IsTransient(err error) bool {
	switch GetCode(err) {
	case ErrCodeTransient, ErrCodeTimeout:
		return true
	}
	return false
}
