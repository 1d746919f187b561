package apperror

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrLocked            = errors.New("locked")
	ErrTransport         = errors.New("store unavailable")
	ErrInternal          = errors.New("internal server error")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrBadRequest and ErrInvalidInput are kept as aliases of ErrValidation
	// so callers can use whichever reads better at the call site.
	ErrBadRequest   = ErrValidation
	ErrInvalidInput = ErrValidation
)

// TransportMessage is what users see when the store could not be reached.
const TransportMessage = "Something went wrong talking to the server. Please try again."

// AppError is a custom error type that can hold an HTTP status code
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Locked wraps ErrLocked with a user-facing message.
func Locked(message string) error {
	return New(http.StatusLocked, message, ErrLocked)
}

// Conflict wraps ErrConflict with a user-facing message.
func Conflict(message string) error {
	return New(http.StatusConflict, message, ErrConflict)
}

// Validation wraps ErrValidation with a user-facing message.
func Validation(message string) error {
	return New(http.StatusBadRequest, message, ErrValidation)
}

// Forbidden wraps ErrForbidden with a user-facing message.
func Forbidden(message string) error {
	return New(http.StatusForbidden, message, ErrForbidden)
}

// NotFound wraps ErrNotFound with a user-facing message.
func NotFound(message string) error {
	return New(http.StatusNotFound, message, ErrNotFound)
}

// Transport wraps a store or network failure.
func Transport(err error) error {
	return New(http.StatusServiceUnavailable, TransportMessage, errors.Join(ErrTransport, err))
}

// MapErrorToStatus maps common errors to HTTP status codes
func MapErrorToStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrLocked):
		return http.StatusLocked
	case errors.Is(err, ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrTransport):
		return http.StatusServiceUnavailable
	}
	// Default to internal server error
	return http.StatusInternalServerError
}
