package router

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"lambo/pkg/lambda"
)

// Handler handles one step of a dispatch. It reports what the executor should
// do next through the returned Outcome. A non-nil error stops the chain and
// is turned into an error response.
type Handler func(ctx context.Context, req *lambda.Request, res *lambda.Response) (Outcome, error)

type outcomeKind int

const (
	outcomeDone outcomeKind = iota
	outcomeNext
	outcomeRespond
)

// Outcome is the decision a handler hands back to the executor. The zero
// value is Done.
type Outcome struct {
	kind  outcomeKind
	value any
}

// Next continues with the following handler in the chain
func Next() Outcome {
	return Outcome{kind: outcomeNext}
}

// Respond sends v as the body and stops the chain. Strings are sent verbatim,
// anything else is encoded as JSON. Ignored if the response is already sent.
func Respond(v any) Outcome {
	return Outcome{kind: outcomeRespond, value: v}
}

// Done stops the chain. Used when the handler sent the response itself.
func Done() Outcome {
	return Outcome{kind: outcomeDone}
}

// IsNext reports whether the outcome continues the chain
func (o Outcome) IsNext() bool {
	return o.kind == outcomeNext
}

// Value returns the value passed to Respond
func (o Outcome) Value() any {
	return o.value
}

func (o Outcome) String() string {
	switch o.kind {
	case outcomeNext:
		return "next"
	case outcomeRespond:
		return "respond"
	default:
		return "done"
	}
}

// PanicError wraps a value recovered from a panicking handler
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}

// Failure kinds reported to Executor.OnFailure
const (
	FailureError   = "error"
	FailurePanic   = "panic"
	FailureTimeout = "timeout"
)

// Executor runs resolved handlers in order against one response
type Executor struct {
	Logger *logrus.Logger

	// OnFailure, if set, is called once per failed dispatch
	OnFailure func(kind string, err error)
}

// NewExecutor creates an Executor. A nil logger falls back to the logrus
// standard logger.
func NewExecutor(logger *logrus.Logger) *Executor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Executor{Logger: logger}
}

// Execute runs handlers strictly in list order, mutating res. A handler's
// error or panic is converted into an error response unless the response
// has already been sent.
func (e *Executor) Execute(ctx context.Context, req *lambda.Request, res *lambda.Response, handlers []Handler) {
	if _, err := run(ctx, req, res, handlers); err != nil {
		e.fail(ctx, req, res, err)
	}
}

func (e *Executor) fail(ctx context.Context, req *lambda.Request, res *lambda.Response, err error) {
	kind := failureKind(err)

	fields := logrus.Fields{
		"request_id": lambda.RequestIDFromContext(ctx),
		"method":     req.Method,
		"path":       req.Path,
		"error":      err.Error(),
		"failure":    kind,
	}
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		fields["stack_trace"] = string(panicErr.Stack)
	}

	if e.OnFailure != nil {
		e.OnFailure(kind, err)
	}

	if res.Sent() {
		e.Logger.WithFields(fields).Error("Handler failed after response was sent")
		return
	}
	e.Logger.WithFields(fields).Error("Handler failed")

	if sendErr := res.SendError(ctx, err); sendErr != nil {
		e.Logger.WithError(sendErr).Error("Failed to write error response")
		_ = res.End(lambda.StatusOf(err))
	}
}

func failureKind(err error) string {
	var panicErr *PanicError
	switch {
	case errors.As(err, &panicErr):
		return FailurePanic
	case errors.Is(err, lambda.ErrDispatchTimeout):
		return FailureTimeout
	default:
		return FailureError
	}
}

// Chain composes handlers into one, with the executor's semantics: the
// composed handler continues only when every handler in it continues.
func Chain(handlers ...Handler) Handler {
	return func(ctx context.Context, req *lambda.Request, res *lambda.Response) (Outcome, error) {
		exhausted, err := run(ctx, req, res, handlers)
		if err != nil {
			return Done(), err
		}
		if exhausted {
			return Next(), nil
		}
		return Done(), nil
	}
}

// run executes handlers until one stops the chain. It reports whether every
// handler asked to continue.
func run(ctx context.Context, req *lambda.Request, res *lambda.Response, handlers []Handler) (bool, error) {
	for i, h := range handlers {
		if err := ctx.Err(); err != nil {
			return false, fmt.Errorf("%w before handler %d: %w", lambda.ErrDispatchTimeout, i, err)
		}

		out, err := invoke(ctx, h, req, res)
		if err != nil {
			return false, err
		}

		switch out.kind {
		case outcomeNext:
			continue
		case outcomeRespond:
			if res.Sent() {
				return false, nil
			}
			return false, write(res, out.value)
		default:
			return false, nil
		}
	}
	return true, nil
}

func invoke(ctx context.Context, h Handler, req *lambda.Request, res *lambda.Response) (out Outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Value: p, Stack: debug.Stack()}
		}
	}()
	return h(ctx, req, res)
}

func write(res *lambda.Response, value any) error {
	if s, ok := value.(string); ok {
		return res.SendBody(s)
	}
	return res.SendJSON(value)
}
