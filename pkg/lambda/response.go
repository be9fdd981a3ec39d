package lambda

import (
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
)

const (
	HeaderContentType = "Content-Type"
	ContentTypeJSON   = "application/json"
)

// Response is the canonical response produced by one dispatch. It belongs to
// that dispatch alone. Once sent, further mutation is ignored.
type Response struct {
	StatusCode        int
	StatusDescription string
	IsBase64Encoded   bool
	Headers           Values
	Body              *string

	// MultiValue writes headers back as multiValueHeaders
	MultiValue bool

	sent bool
}

// NewResponse returns the default response: 200 with no body
func NewResponse() *Response {
	return &Response{StatusCode: http.StatusOK}
}

// Sent reports whether the response has been finalized
func (r *Response) Sent() bool {
	return r.sent
}

// MarkSent finalizes the response without touching it. Idempotent.
func (r *Response) MarkSent() {
	r.sent = true
}

// Status sets the status code and returns the response for chaining
func (r *Response) Status(code int) *Response {
	if !r.sent {
		r.StatusCode = code
	}
	return r
}

// SetStatusDescription overrides the "200 OK" style description
func (r *Response) SetStatusDescription(desc string) *Response {
	if !r.sent {
		r.StatusDescription = desc
	}
	return r
}

// SetHeader sets a single-valued header
func (r *Response) SetHeader(key, value string) *Response {
	if !r.sent {
		r.Headers.Set(key, value)
	}
	return r
}

// AddHeader appends a value to a header
func (r *Response) AddHeader(key, value string) *Response {
	if !r.sent {
		r.Headers.Add(key, value)
	}
	return r
}

// SendBody sets the body verbatim and marks the response sent
func (r *Response) SendBody(content string) error {
	if r.sent {
		return ErrAlreadySent
	}
	r.Body = &content
	r.sent = true
	return nil
}

// SendJSON encodes content as JSON, sets the JSON content type and marks the
// response sent. Nothing is changed when encoding fails.
func (r *Response) SendJSON(content any) error {
	if r.sent {
		return ErrAlreadySent
	}
	data, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to encode response body: %w", err)
	}
	r.Headers.Set(HeaderContentType, ContentTypeJSON)
	return r.SendBody(string(data))
}

// End marks the response sent without a body, optionally setting the status
func (r *Response) End(code ...int) error {
	if r.sent {
		return ErrAlreadySent
	}
	if len(code) > 0 {
		r.StatusCode = code[0]
	}
	r.sent = true
	return nil
}

// Description returns the status description, defaulting to "<code> <text>"
func (r *Response) Description() string {
	if r.StatusDescription != "" {
		return r.StatusDescription
	}
	return fmt.Sprintf("%d %s", r.StatusCode, http.StatusText(r.StatusCode))
}

// BodyString returns the body, or "" when none was set
func (r *Response) BodyString() string {
	if r.Body == nil {
		return ""
	}
	return *r.Body
}
