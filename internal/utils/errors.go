// Package utils provides utility functions used throughout the gateway.
package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents an application error carrying the HTTP status code it
// maps to. Sentinel AppErrors are compared with errors.Is and are never mutated.
type AppError struct {
	// Original is the underlying error that caused this error
	Original error
	// Message is a human-readable error message
	Message string
	// Code is the HTTP status code that should be returned
	Code int
}

// Error returns the error message, satisfying the error interface.
func (e *AppError) Error() string {
	if e.Original != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Original)
	}
	return e.Message
}

// Unwrap returns the underlying error, supporting errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Original
}

// NewAppError creates a new AppError.
func NewAppError(err error, message string, code int) *AppError {
	return &AppError{
		Original: err,
		Message:  message,
		Code:     code,
	}
}

// BadRequestError creates a new 400 Bad Request error.
func BadRequestError(message string, err error) *AppError {
	if message == "" {
		message = "Invalid request"
	}
	return NewAppError(err, message, http.StatusBadRequest)
}

// StatusCode returns the HTTP status code for the error. Errors that carry no
// AppError map to 500.
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
