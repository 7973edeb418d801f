// Package apperr defines the error kinds shared by the client and the server.
package apperr

import (
	"errors"
	"fmt"
)

// Server-side sentinels.
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
)

// Kind sentinels. Typed errors below match them with errors.Is.
var (
	ErrAuth       = errors.New("auth error")
	ErrNetwork    = errors.New("network error")
	ErrValidation = errors.New("validation error")
	ErrParse      = errors.New("parse error")
)

// AuthError reports a missing, expired or rejected token.
type AuthError struct {
	Op     string
	Status int
	Err    error
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: unauthorized (status %d)", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: unauthorized: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error        { return e.Err }
func (e *AuthError) Is(target error) bool { return target == ErrAuth }

// NetworkError reports a transport failure or a non-2xx response.
type NetworkError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Body != "":
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Body)
	default:
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	}
}

func (e *NetworkError) Unwrap() error        { return e.Err }
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// ValidationError rejects input before any network call is made.
// Message is suitable for showing inline next to the input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ParseError reports a payload that could not be interpreted.
type ParseError struct {
	What string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return "parse " + e.What
	}
	return fmt.Sprintf("parse %s: %v", e.What, e.Err)
}

func (e *ParseError) Unwrap() error        { return e.Err }
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// Invalid is shorthand for a field-less ValidationError.
func Invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// Message returns the text to show a user for err. Validation errors keep
// their bare message; everything else uses Error().
func Message(err error) string {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Message
	}
	return err.Error()
}
