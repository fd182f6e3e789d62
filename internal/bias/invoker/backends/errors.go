package backends

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorCategory is the normalized failure taxonomy for backend calls.
type ErrorCategory string

const (
	// ErrorOverloaded indicates the backend reported it is over capacity
	ErrorOverloaded ErrorCategory = "overloaded"

	// ErrorRateLimited indicates too many requests
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorUnavailable indicates the backend reported itself unavailable
	ErrorUnavailable ErrorCategory = "unavailable"

	// ErrorAuthentication indicates credential or permission issues
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorBadRequest indicates the request was rejected as invalid
	ErrorBadRequest ErrorCategory = "bad_request"

	// ErrorTimeout indicates the call did not finish in time
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorInternal indicates any other failure
	ErrorInternal ErrorCategory = "internal"
)

// StatusOverloaded is the non-standard status some vendors use for overload.
const StatusOverloaded = 529

// ErrOverloaded is a vendor-neutral transient failure for clients that do not
// speak HTTP.
var ErrOverloaded = errors.New("backend overloaded")

// Error wraps a backend failure with its classification.
type Error struct {
	Category   ErrorCategory
	Backend    string
	Message    string
	StatusCode int
	Underlying error
	Retryable  bool // true only for explicit overload or unavailability
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("backend %s [%s]: %s: %v", e.Backend, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("backend %s [%s]: %s", e.Backend, e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewError creates a classified backend error.
func NewError(category ErrorCategory, backend, message string, statusCode int, underlying error) *Error {
	retryable := category == ErrorOverloaded ||
		category == ErrorRateLimited ||
		category == ErrorUnavailable

	return &Error{
		Category:   category,
		Backend:    backend,
		Message:    message,
		StatusCode: statusCode,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsTransient reports whether err signals overload or unavailability and is
// therefore worth retrying. Everything else is permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var be *Error
	if errors.As(err, &be) {
		return be.Retryable
	}
	return errors.Is(err, ErrOverloaded)
}

// GetCategory extracts the category from err.
func GetCategory(err error) ErrorCategory {
	var be *Error
	if errors.As(err, &be) {
		return be.Category
	}
	if errors.Is(err, ErrOverloaded) {
		return ErrorOverloaded
	}
	return ErrorInternal
}

// CategoryForStatus maps a vendor HTTP status onto the taxonomy.
func CategoryForStatus(status int) ErrorCategory {
	switch status {
	case StatusOverloaded:
		return ErrorOverloaded
	case http.StatusTooManyRequests:
		return ErrorRateLimited
	case http.StatusServiceUnavailable:
		return ErrorUnavailable
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrorAuthentication
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge:
		return ErrorBadRequest
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ErrorTimeout
	default:
		return ErrorInternal
	}
}

// classifyTransportError handles failures that carry no vendor status.
func classifyTransportError(backend, message string, err error) *Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(ErrorTimeout, backend, message, 0, err)
	case errors.Is(err, ErrOverloaded):
		return NewError(ErrorOverloaded, backend, message, 0, err)
	default:
		return NewError(ErrorInternal, backend, message, 0, err)
	}
}
