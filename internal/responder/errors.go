package responder

import (
	"errors"
	"fmt"
)

// ErrorCategory defines the normalized failure taxonomy
type ErrorCategory string

const (
	// ErrorTimeout indicates the responder took too long to answer
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorOutage indicates the responder endpoint is unavailable (5xx)
	ErrorOutage ErrorCategory = "outage"

	// ErrorConnection indicates the connection dropped or was reset
	ErrorConnection ErrorCategory = "connection"

	// ErrorRateLimited indicates too many requests
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorAuthentication indicates credential or permission issues
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorBadRequest indicates a malformed or rejected request (4xx)
	ErrorBadRequest ErrorCategory = "bad_request"

	// ErrorNotFound indicates the responder model no longer exists
	ErrorNotFound ErrorCategory = "not_found"

	// ErrorInternal indicates an unexpected internal error
	ErrorInternal ErrorCategory = "internal"
)

// CallError wraps responder failures with normalized categorization
type CallError struct {
	Category    ErrorCategory
	ResponderID string
	Message     string
	Underlying  error
	Retryable   bool // Whether this error is worth retrying
}

// Error implements the error interface
func (e *CallError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("responder %s [%s]: %s: %v", e.ResponderID, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("responder %s [%s]: %s", e.ResponderID, e.Category, e.Message)
}

// Unwrap supports error unwrapping
func (e *CallError) Unwrap() error {
	return e.Underlying
}

// NewCallError creates a new normalized responder error. Transient categories
// (timeouts, outages, dropped connections, throttling) are marked retryable;
// everything else is permanent.
func NewCallError(category ErrorCategory, responderID, message string, underlying error) *CallError {
	retryable := category == ErrorTimeout ||
		category == ErrorOutage ||
		category == ErrorConnection ||
		category == ErrorRateLimited

	return &CallError{
		Category:    category,
		ResponderID: responderID,
		Message:     message,
		Underlying:  underlying,
		Retryable:   retryable,
	}
}

// IsRetryable checks if an error is worth retrying
func IsRetryable(err error) bool {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// CategoryOf extracts the error category from an error
func CategoryOf(err error) ErrorCategory {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return ErrorInternal
}
