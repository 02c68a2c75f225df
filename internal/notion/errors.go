package notion

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotConfigured     = errors.New("notion token not configured")
	ErrMissingDatabaseID = errors.New("database id not provided")

	ErrUnauthorized = errors.New("notion token is invalid or expired")
	ErrForbidden    = errors.New("integration has no access to this database")
	ErrNotFound     = errors.New("database not found")
	ErrUpstream     = errors.New("notion returned an error")
	ErrTransport    = errors.New("notion is unreachable")
)

// StatusError is a non-success answer from Notion or from an intermediary.
// It matches ErrUnauthorized, ErrForbidden, ErrNotFound or ErrUpstream
// depending on the status code.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("notion status %d", e.StatusCode)
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrUpstream
	}
}

// TransportError means no response could be obtained through a transport.
type TransportError struct {
	Via string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("notion unreachable via %s: %v", e.Via, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}
