package errors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies an error category with a stable string code
type ErrorCode string

// Error codes for the provisioning engine
const (
	// General errors
	ErrUnknown       ErrorCode = "UNKNOWN"
	ErrInternal      ErrorCode = "INTERNAL"
	ErrInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrNotFound      ErrorCode = "NOT_FOUND"
	ErrAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// Action resolution errors
	ErrMissingAction ErrorCode = "MISSING_ACTION"
	ErrPackNotFound  ErrorCode = "PACK_NOT_FOUND"
	ErrFieldNotFound ErrorCode = "FIELD_NOT_FOUND"

	// File action / configuration errors
	ErrConfiguration ErrorCode = "CONFIGURATION"

	// Manifest errors
	ErrManifestLoad  ErrorCode = "MANIFEST_LOAD"
	ErrManifestParse ErrorCode = "MANIFEST_PARSE"

	// Node / transport errors
	ErrNodeCommand ErrorCode = "NODE_COMMAND"
	ErrTransfer    ErrorCode = "TRANSFER"
	ErrNodeUser    ErrorCode = "NODE_USER"

	// Template errors
	ErrTemplateRender ErrorCode = "TEMPLATE_RENDER"
)

// RigupError is a structured error carrying a code and optional details
type RigupError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *RigupError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *RigupError) Unwrap() error {
	return e.Wrapped
}

// Is matches two RigupErrors by code
func (e *RigupError) Is(target error) bool {
	var targetErr *RigupError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new RigupError with the given code and message
func New(code ErrorCode, message string) *RigupError {
	return &RigupError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new RigupError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *RigupError {
	return &RigupError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a RigupError. Returns nil when err is nil.
func Wrap(err error, code ErrorCode, message string) *RigupError {
	if err == nil {
		return nil
	}
	return &RigupError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *RigupError {
	if err == nil {
		return nil
	}
	return &RigupError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *RigupError) WithDetail(key string, value interface{}) *RigupError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var rigupErr *RigupError
	if errors.As(err, &rigupErr) {
		return rigupErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a RigupError
func GetErrorCode(err error) ErrorCode {
	var rigupErr *RigupError
	if errors.As(err, &rigupErr) {
		return rigupErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a RigupError
func GetErrorDetails(err error) map[string]interface{} {
	var rigupErr *RigupError
	if errors.As(err, &rigupErr) {
		return rigupErr.Details
	}
	return nil
}
