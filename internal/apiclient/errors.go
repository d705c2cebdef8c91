package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthenticated signals that the API rejected the session credential.
	ErrUnauthenticated = errors.New("apiclient: authentication rejected")
	// ErrForbidden signals the credential lacks access to the resource.
	ErrForbidden = errors.New("apiclient: forbidden")
	// ErrNotFound signals the record does not exist.
	ErrNotFound = errors.New("apiclient: not found")
	// ErrValidation signals the API refused the payload.
	ErrValidation = errors.New("apiclient: validation failed")
	// ErrNoEndpoint is returned for resources without a backing API.
	ErrNoEndpoint = errors.New("apiclient: resource has no endpoint")
)

// StatusError describes a non-success API response.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("apiclient: status %d", e.Status)
	}
	return fmt.Sprintf("apiclient: status %d: %s", e.Status, e.Message)
}

// Unwrap exposes the sentinel matching the status, if any.
func (e *StatusError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthenticated
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusConflict:
		return ErrValidation
	}
	return nil
}

func statusError(status int, message string) *StatusError {
	return &StatusError{Status: status, Message: message}
}

// UserMessage returns text safe to show next to a form.
func UserMessage(err error) string {
	var se *StatusError
	switch {
	case errors.As(err, &se) && errors.Is(err, ErrValidation) && se.Message != "":
		return se.Message
	case errors.Is(err, ErrValidation):
		return "The submitted data was rejected."
	case errors.Is(err, ErrNotFound):
		return "The record no longer exists."
	case errors.Is(err, ErrForbidden):
		return "You are not allowed to perform this action."
	default:
		return "The service is unavailable, please try again."
	}
}
