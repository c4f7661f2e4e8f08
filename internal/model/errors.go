package model

import (
	"errors"
	"fmt"
	"net/http"
)

// ResponseError reports a completed HTTP exchange whose status code
// marks the target as broken (400 and above).
//
// Design decision: The error carries the status code as data rather
// than encoding it only in the message because:
//  1. The fetch strategy inspects the code to decide on method fallback
//  2. Report writers print the code and the message independently
//  3. errors.As gives callers the code without string parsing
type ResponseError struct {
	// StatusCode is the HTTP status returned by the server.
	StatusCode int
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	text := http.StatusText(e.StatusCode)
	if text == "" {
		return fmt.Sprintf("status %d", e.StatusCode)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, text)
}

// TransportError reports a failure before any HTTP status was
// obtainable: connection refused, DNS failure, timeout, a broken body
// stream, or an exhausted retry budget.
type TransportError struct {
	// Err is the underlying transport-level error.
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return e.Err.Error()
}

// Unwrap exposes the underlying error to errors.Is and errors.As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ErrorKind names the failure class of err for log lines and reports:
// "ResponseError", "TransportError", or "Error" for anything else.
func ErrorKind(err error) string {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return "ResponseError"
	}
	var transErr *TransportError
	if errors.As(err, &transErr) {
		return "TransportError"
	}
	return "Error"
}
