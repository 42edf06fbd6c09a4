package models

import (
	"errors"
	"fmt"
)

const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodePreconditionFailed = "PRECONDITION_FAILED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeInvariantViolation = "INVARIANT_VIOLATION"
	ErrCodeInsufficientFunds  = "INSUFFICIENT_FUNDS"
	ErrCodeSignatureMismatch  = "SIGNATURE_MISMATCH"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

type CustomError struct {
	Code    string
	Message string
}

func (e *CustomError) Error() string {
	return e.Message
}

func (e *CustomError) ErrorCode() string {
	return e.Code
}

func newError(code, format string, args ...interface{}) *CustomError {
	return &CustomError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func NewValidationError(format string, args ...interface{}) error {
	return newError(ErrCodeValidation, format, args...)
}

func NewPreconditionFailed(format string, args ...interface{}) error {
	return newError(ErrCodePreconditionFailed, format, args...)
}

func NewForbidden(format string, args ...interface{}) error {
	return newError(ErrCodeForbidden, format, args...)
}

func NewConflict(format string, args ...interface{}) error {
	return newError(ErrCodeConflict, format, args...)
}

func NewNotFound(format string, args ...interface{}) error {
	return newError(ErrCodeNotFound, format, args...)
}

func NewInvariantViolation(format string, args ...interface{}) error {
	return newError(ErrCodeInvariantViolation, format, args...)
}

func NewInsufficientFunds(format string, args ...interface{}) error {
	return newError(ErrCodeInsufficientFunds, format, args...)
}

func NewSignatureMismatch(format string, args ...interface{}) error {
	return newError(ErrCodeSignatureMismatch, format, args...)
}

// GetErrorCode returns the code of the first CustomError in the chain.
func GetErrorCode(err error) string {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.ErrorCode()
	}
	return ErrCodeInternal
}

func IsCode(err error, code string) bool {
	return err != nil && GetErrorCode(err) == code
}
