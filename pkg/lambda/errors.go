package lambda

import (
	"errors"
	"fmt"
	"net/http"
)

// Common dispatch error types
var (
	ErrMalformedEvent  = errors.New("malformed event")
	ErrNotImplemented  = errors.New("not implemented")
	ErrNoRouteMatched  = errors.New("no route matched")
	ErrAlreadySent     = errors.New("response already sent")
	ErrUnknownSource   = errors.New("unknown event source")
	ErrDispatchTimeout = errors.New("dispatch timeout")
)

// MalformedEventError reports a source event missing a field the router needs
type MalformedEventError struct {
	Source Source // Event source the payload was read as
	Field  string // Missing or unusable field (e.g., "path", "httpMethod")
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("%v: %s event has no usable %s", ErrMalformedEvent, e.Source, e.Field)
}

func (e *MalformedEventError) Unwrap() error {
	return ErrMalformedEvent
}

// NewMalformedEventError creates a new MalformedEventError
func NewMalformedEventError(source Source, field string) *MalformedEventError {
	return &MalformedEventError{Source: source, Field: field}
}

// NotImplementedError is returned when an app is created for a source kind
// that is declared but not built yet
type NotImplementedError struct {
	Source Source
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("%s handler: %v", e.Source, ErrNotImplemented)
}

func (e *NotImplementedError) Unwrap() error {
	return ErrNotImplemented
}

// StatusError is an error that carries the HTTP status it should be reported with.
// Handlers return it to pick the status of the error response.
type StatusError struct {
	Status  int
	Message string
	Err     error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// NewStatusError creates a new StatusError. An empty message defaults to the status text.
func NewStatusError(status int, message string) *StatusError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &StatusError{Status: status, Message: message}
}

// WrapStatusError attaches a status to an existing error
func WrapStatusError(status int, err error) *StatusError {
	return &StatusError{Status: status, Message: http.StatusText(status), Err: err}
}

// IsMalformedEvent returns true if the error indicates an unusable source event
func IsMalformedEvent(err error) bool {
	return errors.Is(err, ErrMalformedEvent)
}

// IsNotImplemented returns true if the error indicates an unbuilt source kind
func IsNotImplemented(err error) bool {
	return errors.Is(err, ErrNotImplemented)
}

// StatusOf returns the HTTP status an error should be reported with
func StatusOf(err error) int {
	var statusErr *StatusError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &statusErr):
		return statusErr.Status
	case errors.Is(err, ErrNoRouteMatched):
		return http.StatusNotFound
	case errors.Is(err, ErrDispatchTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
