package common

import (
	"fmt"
	"net/http"
)

// AppError is an application error carrying an HTTP status code
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(code, message string, statusCode int) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: statusCode}
}

// WrapAppError creates a new AppError wrapping an underlying error
func WrapAppError(code, message string, statusCode int, err error) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: statusCode, Err: err}
}

// NewNotFoundError creates a 404 AppError
func NewNotFoundError(message string) *AppError {
	return NewAppError("not_found", message, http.StatusNotFound)
}

// NewBadRequestError creates a 400 AppError
func NewBadRequestError(message string) *AppError {
	return NewAppError("bad_request", message, http.StatusBadRequest)
}

// NewUnauthorizedError creates a 401 AppError
func NewUnauthorizedError(message string) *AppError {
	return NewAppError("unauthorized", message, http.StatusUnauthorized)
}

// NewForbiddenError creates a 403 AppError
func NewForbiddenError(message string) *AppError {
	return NewAppError("forbidden", message, http.StatusForbidden)
}

// NewConflictError creates a 409 AppError
func NewConflictError(message string) *AppError {
	return NewAppError("conflict", message, http.StatusConflict)
}

// NewInternalError creates a 500 AppError wrapping the cause
func NewInternalError(message string, err error) *AppError {
	return WrapAppError("internal_error", message, http.StatusInternalServerError, err)
}
