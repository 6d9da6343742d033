package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("resource already exists")
	ErrDependency        = errors.New("dependency failure")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// AppError carries a message for the caller and wraps one of the sentinels
// above, so errors.Is keeps working through it.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Message != "" && e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
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

func NotFound(format string, args ...any) *AppError {
	return New(http.StatusNotFound, fmt.Sprintf(format, args...), ErrNotFound)
}

func InvalidTransition(format string, args ...any) *AppError {
	return New(http.StatusConflict, fmt.Sprintf(format, args...), ErrInvalidTransition)
}

func Validation(format string, args ...any) *AppError {
	return New(http.StatusBadRequest, fmt.Sprintf(format, args...), ErrValidation)
}

func Conflict(format string, args ...any) *AppError {
	return New(http.StatusConflict, fmt.Sprintf(format, args...), ErrConflict)
}

func Forbidden(format string, args ...any) *AppError {
	return New(http.StatusForbidden, fmt.Sprintf(format, args...), ErrForbidden)
}

// Dependency wraps a persistence or transport failure. The original error is
// kept in the chain next to ErrDependency.
func Dependency(op string, err error) *AppError {
	if err == nil {
		return nil
	}
	return New(http.StatusServiceUnavailable, op, fmt.Errorf("%w: %w", ErrDependency, err))
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
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrDependency):
		return http.StatusServiceUnavailable
	}
	// Default to internal server error
	return http.StatusInternalServerError
}
