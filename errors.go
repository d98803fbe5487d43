package sqlguard

import (
	"fmt"

	"github.com/giantswarm/mcp-sqlguard/security"
)

// Gate error codes as constants
const (
	ErrorCodeValidationRejected = "validation_rejected"
	ErrorCodeRateLimited        = "rate_limited"
	ErrorCodeBlocked            = "blocked"
	ErrorCodeExecutorFailure    = "executor_failure"
	ErrorCodeConfiguration      = "configuration_error"
)

// Error represents a gate rejection or failure
type Error struct {
	Code        string           // Gate error code (e.g., "rate_limited", "blocked")
	Description string           // Human-readable error description
	Events      []security.Event // Security findings behind the rejection, if any
	Err         error            // Wrapped downstream error, if any
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Unwrap exposes the wrapped downstream error to errors.Is and errors.As.
// Only executor failures carry one; rejections originate in the gate itself.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new gate error
func NewError(code, description string, events []security.Event) *Error {
	return &Error{
		Code:        code,
		Description: description,
		Events:      events,
	}
}

// Common gate errors as reusable instances
var (
	// ErrValidationRejected indicates the query produced a critical security
	// finding and must not be executed
	ErrValidationRejected = func(desc string, events []security.Event) *Error {
		return NewError(ErrorCodeValidationRejected, desc, events)
	}

	// ErrRateLimited indicates the identity exhausted its request window and
	// should back off
	ErrRateLimited = func(desc string, events []security.Event) *Error {
		return NewError(ErrorCodeRateLimited, desc, events)
	}

	// ErrBlocked indicates the identity is blocklisted and needs an
	// out-of-band unblock before any request is admitted again
	ErrBlocked = func(desc string, events []security.Event) *Error {
		return NewError(ErrorCodeBlocked, desc, events)
	}

	// ErrExecutorFailure classifies a downstream execution failure. The
	// original error stays reachable through errors.Is and errors.As.
	ErrExecutorFailure = func(err error) *Error {
		e := NewError(ErrorCodeExecutorFailure, err.Error(), nil)
		e.Err = err
		return e
	}

	// ErrConfiguration indicates required setup values are missing or
	// invalid; construction fails, no per-request variant exists
	ErrConfiguration = func(desc string) *Error {
		return NewError(ErrorCodeConfiguration, desc, nil)
	}
)
