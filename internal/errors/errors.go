// Package errors provides structured error types and exit codes for pseudotest.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Exit codes returned by the pseudotest binaries.
const (
	ExitSuccess       = 0  // All executions and matches passed
	ExitTestFailure   = 1  // At least one execution or match failed
	ExitConfigError   = 2  // Invalid test file, usage or match definition
	ExitRuntimeError  = 3  // Runtime error (missing executable, staging failed, etc.)
	ExitInternalError = 99 // Unexpected internal error
)

// ErrorKind represents the type of error.
type ErrorKind int

const (
	KindRuntime ErrorKind = iota
	KindConfig
	KindNotFound
	KindValidation
	KindInternal
)

// Error is the base error type for pseudotest.
type Error struct {
	Kind    ErrorKind
	Message string
	Input   string // Input file if applicable
	Match   string // Match name if applicable
	Cause   error  // Underlying error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if e.Input != "" && e.Match != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Input, e.Match, msg)
	}
	if e.Input != "" {
		return fmt.Sprintf("[%s] %s", e.Input, msg)
	}
	if e.Match != "" {
		return fmt.Sprintf("%s: %s", e.Match, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *Error) ExitCode() int {
	switch e.Kind {
	case KindConfig, KindValidation:
		return ExitConfigError
	case KindInternal:
		return ExitInternalError
	default:
		return ExitRuntimeError
	}
}

// Newf creates a new runtime error with formatting.
func Newf(format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindRuntime,
		Message: fmt.Sprintf(format, args...),
	}
}

// Config creates a new configuration error.
func Config(message string) *Error {
	return &Error{
		Kind:    KindConfig,
		Message: message,
	}
}

// Configf creates a new configuration error with formatting.
func Configf(format string, args ...interface{}) *Error {
	return Config(fmt.Sprintf(format, args...))
}

// Internalf creates an internal error with formatting.
func Internalf(format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindInternal,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) *Error {
	return &Error{
		Kind:    KindRuntime,
		Message: message,
		Cause:   err,
	}
}

// WrapConfig wraps an error as a configuration error.
func WrapConfig(err error, message string) *Error {
	return &Error{
		Kind:    KindConfig,
		Message: message,
		Cause:   err,
	}
}

// MatchError attaches input and match context to a message.
func MatchError(kind ErrorKind, input, match, message string) *Error {
	return &Error{
		Kind:    kind,
		Input:   input,
		Match:   match,
		Message: message,
	}
}

// NotFound creates a not found error.
func NotFound(what, name string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found: %s", what, name),
	}
}

// IsKind reports whether err or any error it wraps is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if stderrors.As(err, &e) {
		if e.Kind == kind {
			return true
		}
		if kind == KindConfig && e.Kind == KindValidation {
			return true
		}
	}
	return false
}

// GetExitCode returns the exit code for an error. Errors that were never
// classified are reported as internal errors.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.ExitCode()
	}
	return ExitInternalError
}
