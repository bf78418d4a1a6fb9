// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for the ioloop library.

package api

import "fmt"

// Common errors used across the library.
var (
	ErrLoopClosed        = fmt.Errorf("loop is closed")
	ErrConnClosed        = fmt.Errorf("connection is closed")
	ErrNotRegistered     = fmt.Errorf("descriptor is not registered")
	ErrAlreadyRegistered = fmt.Errorf("descriptor is already registered")
	ErrEventError        = fmt.Errorf("error condition on watched descriptor")
	ErrNotSupported      = fmt.Errorf("operation not supported")
	ErrInvalidArgument   = fmt.Errorf("invalid argument")
	ErrExecutorClosed    = fmt.Errorf("executor is closed")
	ErrWatcherClosed     = fmt.Errorf("config watcher is closed")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeClosed
	ErrCodeNotSupported
	ErrCodeNotFound
	ErrCodeAlreadyExists
	ErrCodeInternal
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
