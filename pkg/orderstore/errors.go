package orderstore

import (
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"
)

// maxDiagnosticBody bounds how much of an upstream body is echoed to callers.
const maxDiagnosticBody = 200

// UpstreamError represents a failed call to the upstream order store:
// a non-2xx status, a transport failure, or a malformed response.
type UpstreamError struct {
	Operation  string
	StatusCode int // 0 for transport failures and undecodable bodies
	Message    string
	Body       string
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("upstream %s failed", e.Operation)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// Truncated returns the upstream body cut to a size safe to show operators.
// The cut never splits a multi-byte character.
func (e *UpstreamError) Truncated() string {
	if len(e.Body) <= maxDiagnosticBody {
		return e.Body
	}
	cut := maxDiagnosticBody
	for cut > 0 && !utf8.RuneStart(e.Body[cut]) {
		cut--
	}
	return e.Body[:cut] + "..."
}

// NewUpstreamError creates a new UpstreamError.
func NewUpstreamError(operation string, statusCode int, message string) *UpstreamError {
	return &UpstreamError{
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
		Retryable:  statusCode == http.StatusTooManyRequests || statusCode >= 500,
	}
}

// WithBody attaches the raw upstream body.
func (e *UpstreamError) WithBody(body string) *UpstreamError {
	e.Body = body
	return e
}

// WithCause adds a cause to the error.
func (e *UpstreamError) WithCause(err error) *UpstreamError {
	e.Cause = err
	return e
}

// WithRetryable overrides the retry classification.
func (e *UpstreamError) WithRetryable(retryable bool) *UpstreamError {
	e.Retryable = retryable
	return e
}

// ErrOrderNotFound indicates no lookup strategy located the order.
var ErrOrderNotFound = errors.New("order not found")

// IsRetryable returns true if the error is a retryable upstream failure.
func IsRetryable(err error) bool {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr.Retryable
	}
	return false
}

// AsUpstream extracts an *UpstreamError from err's chain.
func AsUpstream(err error) (*UpstreamError, bool) {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr, true
	}
	return nil, false
}
