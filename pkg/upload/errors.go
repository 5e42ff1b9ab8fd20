package upload

import (
	"errors"
	"fmt"
)

// Sentinel errors for configuration problems.
var (
	// ErrNoEndpoint is returned when no endpoint URL is configured.
	ErrNoEndpoint = errors.New("upload: endpoint required")

	// ErrInvalidTimeout is returned for a zero or negative timeout.
	ErrInvalidTimeout = errors.New("upload: timeout must be positive")

	// ErrEmptyBody is returned when Upload is called without a body.
	ErrEmptyBody = errors.New("upload: empty request body")
)

// NetworkError is a transport failure: DNS, connect, TLS, reset, or the
// upload exceeding its timeout.
type NetworkError struct {
	// Op is the step that failed ("send", "read").
	Op string

	// Timeout is set when the deadline expired.
	Timeout bool

	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("upload: %s: timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("upload: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx reply from the backend.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the backend's "error" field, or the raw body.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("upload: API error %d: %s", e.StatusCode, e.Message)
}

// IsClientError returns true for 4xx replies.
func (e *APIError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// ParseError is a 2xx reply whose body is not the expected JSON object.
type ParseError struct {
	// Field names the missing or mistyped field. Empty when the body
	// was not JSON at all.
	Field string

	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("upload: malformed response: %v", e.Err)
	}
	return fmt.Sprintf("upload: response field %q: %v", e.Field, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

var (
	errMissing  = errors.New("missing")
	errNotText  = errors.New("not a string")
	errTooLarge = errors.New("response exceeds size limit")
)
