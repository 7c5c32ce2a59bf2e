// Package util provides utility functions and common error types.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for batch synthesis and session execution
var (
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrMissingCredential     = errors.New("missing credential")
	ErrAuthenticationFailure = errors.New("authentication failed")
	ErrTransportFailure      = errors.New("transport failure")
	ErrCommandDrainTimeout   = errors.New("command output drain failed")
	ErrDriverReused          = errors.New("session driver already used")
)

// ValidationError represents one or more invalid parameters
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "invalid argument: " + e.Errors[0]
	}
	return fmt.Sprintf("invalid arguments:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidArgument
}

// NewValidationError creates a validation error from messages
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Errors: messages}
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}

// AuthError reports a rejected login. The shell is never opened for command
// traffic after an AuthError.
type AuthError struct {
	Host string
	User string
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s@%s: %v", e.User, e.Host, e.Err)
}

func (e *AuthError) Unwrap() []error {
	return []error{ErrAuthenticationFailure, e.Err}
}

// TransportError reports a fatal channel failure. Index is the 0-based
// position of the command in flight, or -1 when no command was in flight
// (connect, shell setup, final flush).
type TransportError struct {
	Op      string
	Index   int
	Command string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("transport failure during %s of command %d %q: %v", e.Op, e.Index+1, e.Command, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransportFailure, e.Err}
}

// NewTransportError creates a transport error for a command position
func NewTransportError(op string, index int, command string, err error) *TransportError {
	return &TransportError{Op: op, Index: index, Command: command, Err: err}
}

// DrainError is the non-fatal trouble note attached to a command whose
// output could not be drained cleanly.
type DrainError struct {
	Index   int
	Command string
	Err     error
}

func (e *DrainError) Error() string {
	return fmt.Sprintf("had trouble with command %d %q, please check: %v", e.Index+1, e.Command, e.Err)
}

func (e *DrainError) Unwrap() []error {
	return []error{ErrCommandDrainTimeout, e.Err}
}
