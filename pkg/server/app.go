package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"lambo/internal/config"
	"lambo/internal/metrics"
	"lambo/pkg/lambda"
	"lambo/pkg/router"
)

// HeaderRequestID is the request header a caller may use to pin the
// dispatch request ID
const HeaderRequestID = "X-Request-ID"

// ALBHandler is the promise-mode entry point for load balancer events
type ALBHandler func(ctx context.Context, event events.ALBTargetGroupRequest) (events.ALBTargetGroupResponse, error)

// ALBCallback receives the result of a callback-mode dispatch
type ALBCallback func(events.ALBTargetGroupResponse, error)

// ALBCallbackHandler is the callback-mode entry point for load balancer events
type ALBCallbackHandler func(ctx context.Context, event events.ALBTargetGroupRequest, cb ALBCallback)

// RawHandler accepts the raw event payload as delivered by the host
type RawHandler func(ctx context.Context, payload json.RawMessage) (events.ALBTargetGroupResponse, error)

// App binds a router tree to an event source. Routes are registered on
// Router() during setup; the tree is frozen the first time a handler entry
// point is requested or a dispatch runs.
type App struct {
	source    lambda.Source
	container *Container
	router    *router.Router
	freeze    sync.Once
}

// CreateApp creates an app for source. A nil container is built from
// config.Default(). Sources that are declared but not built yet fail with a
// *lambda.NotImplementedError.
func CreateApp(source lambda.Source, c *Container) (*App, error) {
	switch source {
	case lambda.SourceALB:
	case lambda.SourceAPIGatewayProxy:
		return nil, &lambda.NotImplementedError{Source: source}
	default:
		return nil, fmt.Errorf("%w: %d", lambda.ErrUnknownSource, source)
	}

	if c == nil {
		var err error
		if c, err = NewContainer(nil); err != nil {
			return nil, err
		}
	}

	return &App{
		source:    source,
		container: c,
		router:    router.New(""),
	}, nil
}

// Router returns the root of the route tree
func (a *App) Router() *router.Router {
	return a.router
}

// Source returns the event source the app was created for
func (a *App) Source() lambda.Source {
	return a.source
}

// Container returns the app's dependencies
func (a *App) Container() *Container {
	return a.container
}

func (a *App) freezeRoutes() {
	a.freeze.Do(a.router.Freeze)
}

// Handler returns the promise-mode entry point, suitable for lambda.Start.
// Events missing a path or method are returned to the host as errors.
func (a *App) Handler() ALBHandler {
	a.freezeRoutes()

	return func(ctx context.Context, event events.ALBTargetGroupRequest) (events.ALBTargetGroupResponse, error) {
		res, err := a.handleEvent(ctx, lambda.FromALB(event))
		if err != nil {
			return events.ALBTargetGroupResponse{}, err
		}
		return lambda.ToALB(res), nil
	}
}

// CallbackHandler returns the callback-mode entry point. cb is called
// exactly once per event.
func (a *App) CallbackHandler() ALBCallbackHandler {
	handler := a.Handler()

	return func(ctx context.Context, event events.ALBTargetGroupRequest, cb ALBCallback) {
		cb(handler(ctx, event))
	}
}

// RawHandler returns an entry point decoding the raw event payload, which
// may carry string or list valued headers with null entries.
func (a *App) RawHandler() RawHandler {
	a.freezeRoutes()

	return func(ctx context.Context, payload json.RawMessage) (events.ALBTargetGroupResponse, error) {
		var event lambda.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return events.ALBTargetGroupResponse{}, fmt.Errorf("%w: %v", lambda.ErrMalformedEvent, err)
		}
		event.Source = a.source

		res, err := a.handleEvent(ctx, event)
		if err != nil {
			return events.ALBTargetGroupResponse{}, err
		}
		return lambda.ToALB(res), nil
	}
}

func (a *App) handleEvent(ctx context.Context, event lambda.Event) (*lambda.Response, error) {
	req, err := lambda.NormalizeRequest(event)
	if err != nil {
		a.container.Logger.WithFields(logrus.Fields{
			"source": event.Source.String(),
			"error":  err.Error(),
		}).Warn("Rejected malformed event")
		return nil, err
	}
	return a.Dispatch(ctx, req), nil
}

// Dispatch resolves req against the route tree and runs the matching
// handlers. The returned response is always marked sent.
func (a *App) Dispatch(ctx context.Context, req *lambda.Request) *lambda.Response {
	a.freezeRoutes()

	cfg := a.container.Config
	start := time.Now()

	requestID := requestIDFor(ctx, req)
	ctx = lambda.WithRequestID(ctx, requestID)
	if cfg.Dispatch.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Dispatch.HandlerTimeout)
		defer cancel()
	}

	res := lambda.NewResponse()
	res.MultiValue = req.MultiValue || cfg.Dispatch.MultiValueHeaders

	outcome := metrics.OutcomeHandled
	handlers := a.router.Resolve(req.Path, req.Method)
	if len(handlers) == 0 {
		outcome = metrics.OutcomeNoRoute
		a.noRoute(ctx, req, res)
	} else {
		executor := router.NewExecutor(a.container.Logger)
		executor.OnFailure = func(kind string, err error) {
			outcome = metrics.OutcomeFailed
			a.container.Metrics.RecordHandlerFailure(kind)
		}
		executor.Execute(ctx, req, res, handlers)
	}
	res.MarkSent()

	elapsed := time.Since(start)
	a.container.Metrics.RecordDispatch(methodLabel(req.Method), res.StatusCode, outcome, elapsed)
	a.logDispatch(req, res, requestID, outcome, len(handlers), elapsed)

	return res
}

func (a *App) noRoute(ctx context.Context, req *lambda.Request, res *lambda.Response) {
	a.container.Metrics.RecordRouteMiss(methodLabel(req.Method))

	if a.container.Config.Dispatch.NotFoundPolicy == config.NotFoundPolicyDefault {
		return
	}

	err := fmt.Errorf("%w: %s %s", lambda.ErrNoRouteMatched, req.Method, req.Path)
	if sendErr := res.SendError(ctx, err); sendErr != nil {
		a.container.Logger.WithError(sendErr).Error("Failed to write not found response")
	}
}

func (a *App) logDispatch(req *lambda.Request, res *lambda.Response, requestID, outcome string, handlers int, elapsed time.Duration) {
	logger := a.container.Logger
	fields := logrus.Fields{
		"request_id":  requestID,
		"source":      a.source.String(),
		"method":      req.Method,
		"path":        req.Path,
		"status_code": res.StatusCode,
		"outcome":     outcome,
		"handlers":    handlers,
		"latency_ms":  float64(elapsed.Nanoseconds()) / 1000000,
	}

	switch {
	case res.StatusCode >= 500:
		logger.WithFields(fields).Error("Dispatch failed")
	case res.StatusCode >= 400:
		logger.WithFields(fields).Warn("Dispatch completed with client error")
	default:
		logger.WithFields(fields).Info("Dispatch completed")
	}

	threshold := a.container.Config.Dispatch.SlowDispatchThreshold
	if threshold > 0 && elapsed > threshold {
		logger.WithFields(logrus.Fields{
			"performance_alert": true,
			"request_id":        requestID,
			"path":              req.Path,
			"latency_ms":        float64(elapsed.Nanoseconds()) / 1000000,
			"threshold_ms":      float64(threshold.Nanoseconds()) / 1000000,
		}).Warn("Slow dispatch detected")
	}
}

// methodLabel bounds the metric label set: wire methods the router cannot
// match are all reported as OTHER.
func methodLabel(m lambda.Method) string {
	if !m.Valid() {
		return "OTHER"
	}
	return string(m)
}

// requestIDFor picks the request ID: the caller's X-Request-ID header, then
// the Lambda invocation ID, then a fresh UUID.
func requestIDFor(ctx context.Context, req *lambda.Request) string {
	if id := req.Header(HeaderRequestID); id != "" {
		return id
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.New().String()
}

// Close releases the app's dependencies
func (a *App) Close() error {
	return a.container.Close()
}
