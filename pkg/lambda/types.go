package lambda

import (
	"fmt"
	"strings"
)

// Method is an HTTP method the router can match on
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodOptions Method = "OPTIONS"
	MethodDelete  Method = "DELETE"
	MethodPatch   Method = "PATCH"
)

// Valid reports whether m is one of the routable methods
func (m Method) Valid() bool {
	switch m {
	case MethodGet, MethodPost, MethodOptions, MethodDelete, MethodPatch:
		return true
	}
	return false
}

// ParseMethod normalizes a wire method name. Unknown methods are returned
// upper-cased so that they simply never match a route.
func ParseMethod(s string) Method {
	return Method(strings.ToUpper(strings.TrimSpace(s)))
}

// Source identifies the kind of trigger event a handler is built for
type Source int

const (
	// SourceALB is an Application Load Balancer target-group event
	SourceALB Source = iota
	// SourceAPIGatewayProxy is an API Gateway REST proxy event
	SourceAPIGatewayProxy
)

func (s Source) String() string {
	switch s {
	case SourceALB:
		return "alb"
	case SourceAPIGatewayProxy:
		return "apigateway"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// ParseSource maps a configuration value to a Source
func ParseSource(s string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "alb", "":
		return SourceALB, nil
	case "apigateway", "api-gateway", "apigatewayproxy":
		return SourceAPIGatewayProxy, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
}
