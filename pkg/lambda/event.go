package lambda

import (
	"github.com/aws/aws-lambda-go/events"
)

// EventContext is the part of a source event's requestContext the router reads
type EventContext struct {
	Path string `json:"path,omitempty"`
}

// Event is the source-agnostic view of an HTTP trigger event. It can be
// decoded straight from a raw host payload or converted from the typed
// event structs.
type Event struct {
	Source                          Source        `json:"-"`
	HTTPMethod                      string        `json:"httpMethod"`
	Path                            string        `json:"path"`
	Headers                         Values        `json:"headers"`
	MultiValueHeaders               Values        `json:"multiValueHeaders"`
	QueryStringParameters           Values        `json:"queryStringParameters"`
	MultiValueQueryStringParameters Values        `json:"multiValueQueryStringParameters"`
	Body                            *string       `json:"body"`
	IsBase64Encoded                 *bool         `json:"isBase64Encoded"`
	RequestContext                  *EventContext `json:"requestContext,omitempty"`
}

// FromALB converts a load balancer target-group event
func FromALB(e events.ALBTargetGroupRequest) Event {
	body := e.Body
	encoded := e.IsBase64Encoded
	return Event{
		Source:                          SourceALB,
		HTTPMethod:                      e.HTTPMethod,
		Path:                            e.Path,
		Headers:                         ValuesFromMap(e.Headers),
		MultiValueHeaders:               ValuesFromMultiMap(e.MultiValueHeaders),
		QueryStringParameters:           ValuesFromMap(e.QueryStringParameters),
		MultiValueQueryStringParameters: ValuesFromMultiMap(e.MultiValueQueryStringParameters),
		Body:                            &body,
		IsBase64Encoded:                 &encoded,
	}
}

// FromAPIGatewayProxy converts an API Gateway REST proxy event. The stage-
// qualified requestContext.path is kept so normalization can prefer it.
func FromAPIGatewayProxy(e events.APIGatewayProxyRequest) Event {
	body := e.Body
	encoded := e.IsBase64Encoded
	ev := Event{
		Source:                          SourceAPIGatewayProxy,
		HTTPMethod:                      e.HTTPMethod,
		Path:                            e.Path,
		Headers:                         ValuesFromMap(e.Headers),
		MultiValueHeaders:               ValuesFromMultiMap(e.MultiValueHeaders),
		QueryStringParameters:           ValuesFromMap(e.QueryStringParameters),
		MultiValueQueryStringParameters: ValuesFromMultiMap(e.MultiValueQueryStringParameters),
		Body:                            &body,
		IsBase64Encoded:                 &encoded,
	}
	if e.RequestContext.Path != "" {
		ev.RequestContext = &EventContext{Path: e.RequestContext.Path}
	}
	return ev
}
