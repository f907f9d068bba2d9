package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized means the bearer token is missing, expired or revoked
	ErrUnauthorized = errors.New("backend: unauthorized")
	// ErrForbidden means the token is valid but lacks permission
	ErrForbidden = errors.New("backend: forbidden")
	// ErrNotFound means the requested resource does not exist
	ErrNotFound = errors.New("backend: not found")
	// ErrValidation means the backend rejected the payload
	ErrValidation = errors.New("backend: validation failed")
	// ErrDecode means the response did not match the canonical schema
	ErrDecode = errors.New("backend: unexpected response shape")
	// ErrUnavailable covers transport failures and 5xx replies
	ErrUnavailable = errors.New("backend: unavailable")
)

// APIError is a non-2xx reply from the collection backend
type APIError struct {
	Status  int
	Method  string
	Path    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

// Unwrap maps the status onto a sentinel so callers can use errors.Is
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return ErrForbidden
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity:
		return ErrValidation
	case e.Status >= 500:
		return ErrUnavailable
	}
	return nil
}

// UserMessage returns text safe to show in a toast
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" && apiErr.Status < 500 {
		return apiErr.Message
	}
	return fallback
}
