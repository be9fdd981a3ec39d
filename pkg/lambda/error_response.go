package lambda

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrorResponse represents a standard error response body
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// NewErrorResponse builds the error body for err. Server-side failures get a
// generic message so internals are not exposed.
func NewErrorResponse(ctx context.Context, err error) ErrorResponse {
	status := StatusOf(err)

	message := "An internal error occurred"
	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		message = statusErr.Message
	case status < http.StatusInternalServerError:
		message = err.Error()
	case errors.Is(err, ErrDispatchTimeout):
		message = "The request did not complete in time"
	}

	return ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		RequestID: RequestIDFromContext(ctx),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// SendError writes the error response for err and marks the response sent
func (r *Response) SendError(ctx context.Context, err error) error {
	if r.sent {
		return ErrAlreadySent
	}
	r.StatusCode = StatusOf(err)
	return r.SendJSON(NewErrorResponse(ctx, err))
}
