package api

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrHTTPStatus is matched by every *HTTPError.
	ErrHTTPStatus = errors.New("unexpected http status")

	// ErrSchema is matched by every *SchemaError.
	ErrSchema = errors.New("response does not match schema")
)

// HTTPError is returned for any non-2xx response. It is never retried.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Is lets errors.Is match ErrHTTPStatus.
func (e *HTTPError) Is(target error) bool { return target == ErrHTTPStatus }

// SchemaError is returned when a response body cannot be read as the expected type.
type SchemaError struct {
	Path   string
	Issues []string
	Cause  error
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	msg := "invalid response from " + e.Path
	if len(e.Issues) > 0 {
		msg += ": " + strings.Join(e.Issues, "; ")
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying decode error, if any.
func (e *SchemaError) Unwrap() error { return e.Cause }

// Is lets errors.Is match ErrSchema.
func (e *SchemaError) Is(target error) bool { return target == ErrSchema }
