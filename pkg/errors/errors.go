package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError provides a structured error that can be rendered to API consumers.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// Common errors exposed to the rest of the application.
var (
	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	// ErrInvalidCredentials is deliberately generic so responses cannot be
	// used to enumerate registered accounts.
	ErrInvalidCredentials = &AppError{
		Code:       "INVALID_CREDENTIALS",
		Message:    "Invalid identifier or password",
		StatusCode: http.StatusUnauthorized,
	}

	ErrAccountNotVerified = &AppError{
		Code:       "ACCOUNT_NOT_VERIFIED",
		Message:    "Please verify your account first",
		StatusCode: http.StatusForbidden,
	}

	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "Permission denied",
		StatusCode: http.StatusForbidden,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrConflict = &AppError{
		Code:       "CONFLICT",
		Message:    "Resource already exists",
		StatusCode: http.StatusConflict,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}

	ErrUpstream = &AppError{
		Code:       "UPSTREAM_ERROR",
		Message:    "Upstream service failure",
		StatusCode: http.StatusBadGateway,
	}

	ErrRateLimit = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Too many requests, please slow down",
		StatusCode: http.StatusTooManyRequests,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap turns any error into an AppError while keeping the original error for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// NewBadRequest wraps validation errors with a helpful message.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:       ErrBadRequest.Code,
		Message:    message,
		StatusCode: ErrBadRequest.StatusCode,
	}
}

// NewConflict reports a duplicate-resource failure with a custom message.
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       ErrConflict.Code,
		Message:    message,
		StatusCode: ErrConflict.StatusCode,
	}
}
