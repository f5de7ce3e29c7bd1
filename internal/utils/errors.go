package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError carries the HTTP status an error should be reported with.
type APIError struct {
	Code    int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Code: %d, Message: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("Code: %d, Message: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// New returns an APIError with the given status and message.
func New(code int, message string) error {
	return &APIError{Code: code, Message: message}
}

// Wrap attaches a status to err, keeping it visible to errors.Is.
func Wrap(code int, message string, err error) error {
	return &APIError{Code: code, Message: message, Err: err}
}

// StatusOf returns the status carried by err, or 500.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return http.StatusInternalServerError
}

// MessageOf returns the client-facing message for err. Errors without a
// status are reported generically.
func MessageOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Err != nil && apiErr.Message == "" {
			return apiErr.Err.Error()
		}
		if apiErr.Err != nil {
			return apiErr.Message + ": " + apiErr.Err.Error()
		}
		return apiErr.Message
	}
	return http.StatusText(http.StatusInternalServerError)
}
