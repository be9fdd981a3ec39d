package lambda

import (
	"github.com/aws/aws-lambda-go/events"
)

// ToALB converts the canonical response to a load balancer result. Status,
// description and headers are copied verbatim.
func ToALB(r *Response) events.ALBTargetGroupResponse {
	out := events.ALBTargetGroupResponse{
		StatusCode:        r.StatusCode,
		StatusDescription: r.Description(),
		IsBase64Encoded:   r.IsBase64Encoded,
		Body:              r.BodyString(),
	}
	if r.MultiValue {
		out.MultiValueHeaders = r.Headers.MultiMap()
	} else {
		out.Headers = r.Headers.Map()
		if r.Headers.HasMulti() {
			out.MultiValueHeaders = r.Headers.MultiMap()
		}
	}
	return out
}

// ToAPIGatewayProxy converts the canonical response to an API Gateway proxy
// result. That shape has no status description.
func ToAPIGatewayProxy(r *Response) events.APIGatewayProxyResponse {
	out := events.APIGatewayProxyResponse{
		StatusCode:      r.StatusCode,
		IsBase64Encoded: r.IsBase64Encoded,
		Body:            r.BodyString(),
		Headers:         r.Headers.Map(),
	}
	if r.MultiValue || r.Headers.HasMulti() {
		out.MultiValueHeaders = r.Headers.MultiMap()
	}
	return out
}
