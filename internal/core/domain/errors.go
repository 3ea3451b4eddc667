package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a client error with a structured error code.
// Codes have the form SF-<AREA>-<NNNN>; the numeric part mirrors the closest
// HTTP status.
type DomainError struct {
	Code    string // Error code (e.g., "SF-AUTH-4010")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Error taxonomy. Every failure the client surfaces is classified into one of
// these; connection.Classify maps transport and HTTP failures onto them.
var (
	// ErrAuth covers bad credentials and invalid or expired refresh tokens.
	// Never retried beyond the single refresh-and-replay cycle.
	ErrAuth = NewDomainError("SF-AUTH-4010", "authentication failed")

	// ErrForbidden is a 403 from the backend.
	ErrForbidden = NewDomainError("SF-AUTH-4030", "permission denied")

	// ErrNetwork is a transient transport failure. Retried per the cache's
	// retry budget.
	ErrNetwork = NewDomainError("SF-NET-5030", "network error")

	// ErrValidation is a 4xx rejection of the request payload. Never retried.
	ErrValidation = NewDomainError("SF-VAL-4000", "request rejected")

	// ErrNotFound is a 404 from the backend.
	ErrNotFound = NewDomainError("SF-VAL-4040", "not found")

	// ErrServer is a 5xx from the backend. Not retried by default.
	ErrServer = NewDomainError("SF-SYS-5000", "server error")
)

// Client-side rule violations. These are raised before any request is sent.
var (
	ErrNotAuthenticated    = NewDomainError("SF-SESS-4011", "not logged in")
	ErrInvalidState        = NewDomainError("SF-SESS-4090", "session operation already in progress")
	ErrInvalidToken        = NewDomainError("SF-TOKN-4000", "access and refresh tokens must both be set or both be empty")
	ErrOrderNotCancellable = NewDomainError("SF-ORDR-4090", "order cannot be cancelled in its current status")
	ErrInvalidArgument     = NewDomainError("SF-ARG-1001", "invalid argument")
	ErrStorage             = NewDomainError("SF-SYS-5001", "storage error")
)
