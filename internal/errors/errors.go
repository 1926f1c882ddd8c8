// Package errors defines the application-level error type used for
// non-provider failures: configuration, bootstrap, and pipeline-fatal
// conditions. LLM provider errors have their own taxonomy in internal/llm.
package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeInvalidInput   ErrorCode = "INVALID_INPUT"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeAlreadyExists  ErrorCode = "ALREADY_EXISTS"
	CodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	CodeForbidden      ErrorCode = "FORBIDDEN"
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
	CodeServiceUnavail ErrorCode = "SERVICE_UNAVAILABLE"
	CodeConfiguration  ErrorCode = "CONFIGURATION_ERROR"
	CodePipelineFatal  ErrorCode = "PIPELINE_FATAL"
)

// AppError is the application error envelope. It is never used to carry
// LLM provider failures — those use llm.ProviderError and its subtypes.
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

func NewInvalidInputError(message string) *AppError {
	return &AppError{Code: CodeInvalidInput, Message: message}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Code: CodeNotFound, Message: message}
}

func NewAlreadyExistsError(message string) *AppError {
	return &AppError{Code: CodeAlreadyExists, Message: message}
}

func NewInternalError(message string) *AppError {
	return &AppError{Code: CodeInternal, Message: message}
}

func NewInternalErrorWithCause(message string, cause error) *AppError {
	return &AppError{Code: CodeInternal, Message: message, Err: cause}
}

func NewConfigurationError(message string) *AppError {
	return &AppError{Code: CodeConfiguration, Message: message}
}

func NewConfigurationErrorWithCause(message string, cause error) *AppError {
	return &AppError{Code: CodeConfiguration, Message: message, Err: cause}
}

// NewPipelineFatalError wraps the engine's two hard-stop conditions: a FAIL
// outcome with no outgoing edge, and an unsatisfied goal gate with no retry
// target.
func NewPipelineFatalError(message string) *AppError {
	return &AppError{Code: CodePipelineFatal, Message: message}
}

func IsNotFound(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == CodeNotFound
	}
	return false
}

func IsInvalidInput(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == CodeInvalidInput
	}
	return false
}

func IsPipelineFatal(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == CodePipelineFatal
	}
	return false
}
