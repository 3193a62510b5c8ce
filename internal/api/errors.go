// internal/api/errors.go
//
// Error taxonomy for calls to the alert API.
//
// Context
// -------
// Handlers never look at status codes.  They ask the error what it is:
//
//   - *NotFoundError    – the record does not exist (404).
//   - *ValidationError  – the server rejected the payload (400, 409, 422).
//   - *NetworkError     – transport failure, timeout, or any other non-2xx.
//   - ErrUnauthorized   – the token was refused (401).
//
// All types support errors.As; NetworkError unwraps to its cause so
// errors.Is(err, context.Canceled) keeps working.
package api

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned (wrapped) when the API answers 401.
var ErrUnauthorized = errors.New("api: unauthorized")

// NotFoundError reports a 404 for Path.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("api: %s not found", e.Path) }

// ValidationError carries the server's explanation of a rejected payload.
type ValidationError struct {
	Status  int
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: payload rejected (%d)", e.Status)
	}
	return fmt.Sprintf("api: payload rejected (%d): %s", e.Status, e.Message)
}

// NetworkError wraps everything that is neither a 404 nor a validation
// failure.  Status is 0 when no response was received.
type NetworkError struct {
	Op     string // "GET /alerts/42"
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("api: %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("api: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is, or wraps, a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNetwork reports whether err is, or wraps, a *NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
