package lambda

import (
	"context"
	"strings"
)

// Request is the canonical HTTP request every event source is translated to.
// It is built once per event and must be treated as read-only by handlers.
type Request struct {
	Path            string
	Method          Method
	QueryString     Values
	Headers         Values
	Body            *string
	IsBase64Encoded *bool

	// MultiValue is set when the source delivered list-valued headers, in
	// which case the result must be written back in the same shape.
	MultiValue bool
}

// Header returns the first value of a request header. Names are matched
// exactly first, then case-insensitively, since ALB lower-cases them.
func (r *Request) Header(key string) string {
	if r.Headers.Has(key) {
		return r.Headers.Get(key)
	}
	for _, f := range r.Headers.fields {
		if strings.EqualFold(f.Key, key) && len(f.Values) > 0 {
			return f.Values[0]
		}
	}
	return ""
}

// Query returns the first value of a query string parameter
func (r *Request) Query(key string) string {
	return r.QueryString.Get(key)
}

// BodyString returns the raw body, or "" when the event had none
func (r *Request) BodyString() string {
	if r.Body == nil {
		return ""
	}
	return *r.Body
}

// NormalizeRequest converts a source event into the canonical request. The
// path comes from requestContext.path when present, else from the event's
// own path. Body and base64 flag pass through untouched.
func NormalizeRequest(e Event) (*Request, error) {
	path := e.Path
	if e.RequestContext != nil && e.RequestContext.Path != "" {
		path = e.RequestContext.Path
	}
	if path == "" {
		return nil, NewMalformedEventError(e.Source, "path")
	}
	if e.HTTPMethod == "" {
		return nil, NewMalformedEventError(e.Source, "httpMethod")
	}

	req := &Request{
		Path:            path,
		Method:          ParseMethod(e.HTTPMethod),
		Body:            e.Body,
		IsBase64Encoded: e.IsBase64Encoded,
	}

	if e.MultiValueHeaders.Len() > 0 {
		req.Headers = flatten(e.MultiValueHeaders)
		req.MultiValue = true
	} else {
		req.Headers = flatten(e.Headers)
	}

	if e.MultiValueQueryStringParameters.Len() > 0 {
		req.QueryString = flatten(e.MultiValueQueryStringParameters)
	} else {
		req.QueryString = flatten(e.QueryStringParameters)
	}

	return req, nil
}

// flatten copies the entries that carry at least one value. A list holding
// exactly one value collapses to a plain string.
func flatten(in Values) Values {
	var out Values
	for _, f := range in.fields {
		switch len(f.Values) {
		case 0:
			continue
		case 1:
			out.Set(f.Key, f.Values[0])
		default:
			out.SetAll(f.Key, f.Values)
		}
	}
	return out
}

type requestIDKey struct{}

// WithRequestID returns a context carrying the dispatch request ID
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the dispatch request ID, if any
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
