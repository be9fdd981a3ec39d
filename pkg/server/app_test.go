package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lambo/internal/config"
	"lambo/pkg/lambda"
	"lambo/pkg/router"
)

type testApp struct {
	*App
	hook *test.Hook
}

func newTestApp(t *testing.T, mutate func(*config.Config)) testApp {
	t.Helper()

	cfg := config.Default()
	cfg.JWT.Secret = "test-secret"
	if mutate != nil {
		mutate(cfg)
	}

	container, err := NewContainer(cfg)
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	container.Logger = logger

	app, err := CreateApp(lambda.SourceALB, container)
	require.NoError(t, err)
	return testApp{App: app, hook: hook}
}

func respond(v any) router.Handler {
	return func(ctx context.Context, req *lambda.Request, res *lambda.Response) (router.Outcome, error) {
		return router.Respond(v), nil
	}
}

func TestCreateApp(t *testing.T) {
	app, err := CreateApp(lambda.SourceALB, nil)
	require.NoError(t, err)
	assert.Equal(t, lambda.SourceALB, app.Source())
	assert.NotNil(t, app.Container())
	assert.Equal(t, "", app.Router().Path())

	_, err = CreateApp(lambda.SourceAPIGatewayProxy, nil)
	require.Error(t, err)
	assert.True(t, lambda.IsNotImplemented(err))
	var notImpl *lambda.NotImplementedError
	require.ErrorAs(t, err, &notImpl)
	assert.Equal(t, lambda.SourceAPIGatewayProxy, notImpl.Source)

	_, err = CreateApp(lambda.Source(42), nil)
	assert.ErrorIs(t, err, lambda.ErrUnknownSource)
}

func TestApp_Handler(t *testing.T) {
	app := newTestApp(t, nil)

	admin := router.New("/admin")
	admin.Get("/dashboard", respond("dashboard"))
	app.Router().
		Get("/", respond(map[string]string{"name": "bob"})).
		AddSubRouter(admin)

	handler := app.Handler()
	assert.True(t, app.Router().Frozen())

	t.Run("root", func(t *testing.T) {
		res, err := handler(context.Background(), events.ALBTargetGroupRequest{HTTPMethod: "GET", Path: "/"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, "application/json", res.Headers["Content-Type"])
		assert.Equal(t, `{"name":"bob"}`, res.Body)
	})

	t.Run("sub-router", func(t *testing.T) {
		res, err := handler(context.Background(), events.ALBTargetGroupRequest{HTTPMethod: "GET", Path: "/admin/dashboard"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, "dashboard", res.Body)
		assert.NotContains(t, res.Headers, "Content-Type")
	})

	t.Run("unknown path", func(t *testing.T) {
		res, err := handler(context.Background(), events.ALBTargetGroupRequest{HTTPMethod: "GET", Path: "/unknown"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
		assert.Equal(t, "404 Not Found", res.StatusDescription)

		var body lambda.ErrorResponse
		require.NoError(t, json.Unmarshal([]byte(res.Body), &body))
		assert.Equal(t, "Not Found", body.Error)
		assert.Contains(t, body.Message, "GET /unknown")
		assert.NotEmpty(t, body.RequestID)
	})

	t.Run("wrong method", func(t *testing.T) {
		res, err := handler(context.Background(), events.ALBTargetGroupRequest{HTTPMethod: "POST", Path: "/"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})

	t.Run("malformed event", func(t *testing.T) {
		_, err := handler(context.Background(), events.ALBTargetGroupRequest{HTTPMethod: "GET"})
		require.Error(t, err)
		assert.True(t, lambda.IsMalformedEvent(err))

		_, err = handler(context.Background(), events.ALBTargetGroupRequest{Path: "/"})
		assert.True(t, lambda.IsMalformedEvent(err))
	})
}

func TestApp_DefaultNotFoundPolicy(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.Dispatch.NotFoundPolicy = config.NotFoundPolicyDefault
	})

	res, err := app.Handler()(context.Background(), events.ALBTargetGroupRequest{HTTPMethod: "GET", Path: "/unknown"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "200 OK", res.StatusDescription)
	assert.Empty(t, res.Body)
}

func TestApp_FailureBoundary(t *testing.T) {
	app := newTestApp(t, nil)
	app.Router().
		Get("/boom", func(ctx context.Context, req *lambda.Request, res *lambda.Response) (router.Outcome, error) {
			panic("boom")
		}).
		Get("/teapot", func(ctx context.Context, req *lambda.Request, res *lambda.Response) (router.Outcome, error) {
			return router.Done(), lambda.NewStatusError(http.StatusTeapot, "short and stout")
		})

	handler := app.Handler()

	res, err := handler(context.Background(), events.ALBTargetGroupRequest{HTTPMethod: "GET", Path: "/boom"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Contains(t, res.Body, "An internal error occurred")

	res, err = handler(context.Background(), events.ALBTargetGroupRequest{HTTPMethod: "GET", Path: "/teapot"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, res.StatusCode)
	assert.Contains(t, res.Body, "short and stout")
}

func TestApp_HandlerTimeout(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.Dispatch.HandlerTimeout = 10 * time.Millisecond
	})
	app.Router().Get("/slow", router.Chain(
		func(ctx context.Context, req *lambda.Request, res *lambda.Response) (router.Outcome, error) {
			<-ctx.Done()
			return router.Next(), nil
		},
		respond("too late"),
	))

	res, err := app.Handler()(context.Background(), events.ALBTargetGroupRequest{HTTPMethod: "GET", Path: "/slow"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusGatewayTimeout, res.StatusCode)
	assert.NotContains(t, res.Body, "too late")
}

func TestApp_RequestID(t *testing.T) {
	app := newTestApp(t, nil)
	var seen []string
	var mu sync.Mutex
	app.Router().Get("/", func(ctx context.Context, req *lambda.Request, res *lambda.Response) (router.Outcome, error) {
		mu.Lock()
		seen = append(seen, lambda.RequestIDFromContext(ctx))
		mu.Unlock()
		return router.Respond("ok"), nil
	})
	handler := app.Handler()

	_, err := handler(context.Background(), events.ALBTargetGroupRequest{
		HTTPMethod: "GET",
		Path:       "/",
		Headers:    map[string]string{"x-request-id": "from-header"},
	})
	require.NoError(t, err)

	lc := &lambdacontext.LambdaContext{AwsRequestID: "from-lambda"}
	_, err = handler(lambdacontext.NewContext(context.Background(), lc), events.ALBTargetGroupRequest{HTTPMethod: "GET", Path: "/"})
	require.NoError(t, err)

	_, err = handler(context.Background(), events.ALBTargetGroupRequest{HTTPMethod: "GET", Path: "/"})
	require.NoError(t, err)

	require.Len(t, seen, 3)
	assert.Equal(t, "from-header", seen[0])
	assert.Equal(t, "from-lambda", seen[1])
	assert.Len(t, seen[2], 36)
}

func TestApp_MultiValueHeaders(t *testing.T) {
	app := newTestApp(t, nil)
	app.Router().Get("/", func(ctx context.Context, req *lambda.Request, res *lambda.Response) (router.Outcome, error) {
		res.AddHeader("Set-Cookie", "a=1").AddHeader("Set-Cookie", "b=2")
		return router.Respond(req.Header("accept")), nil
	})

	res, err := app.Handler()(context.Background(), events.ALBTargetGroupRequest{
		HTTPMethod:        "GET",
		Path:              "/",
		MultiValueHeaders: map[string][]string{"accept": {"text/plain"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "text/plain", res.Body)
	assert.Nil(t, res.Headers)
	assert.Equal(t, []string{"a=1", "b=2"}, res.MultiValueHeaders["Set-Cookie"])
}

func TestApp_CallbackHandler(t *testing.T) {
	app := newTestApp(t, nil)
	app.Router().Get("/", respond("hello"))

	var calls int
	var got events.ALBTargetGroupResponse
	var gotErr error
	app.CallbackHandler()(context.Background(), events.ALBTargetGroupRequest{HTTPMethod: "GET", Path: "/"},
		func(res events.ALBTargetGroupResponse, err error) {
			calls++
			got, gotErr = res, err
		})

	assert.Equal(t, 1, calls)
	require.NoError(t, gotErr)
	assert.Equal(t, "hello", got.Body)

	app.CallbackHandler()(context.Background(), events.ALBTargetGroupRequest{HTTPMethod: "GET"},
		func(res events.ALBTargetGroupResponse, err error) {
			calls++
			gotErr = err
		})
	assert.Equal(t, 2, calls)
	assert.True(t, lambda.IsMalformedEvent(gotErr))
}

func TestApp_RawHandler(t *testing.T) {
	app := newTestApp(t, nil)
	app.Router().Get("/raw", func(ctx context.Context, req *lambda.Request, res *lambda.Response) (router.Outcome, error) {
		return router.Respond(map[string]any{
			"accept": req.Headers.All("accept"),
			"q":      req.Query("q"),
			"empty":  req.Headers.Has("x-empty"),
		}), nil
	})
	handler := app.RawHandler()

	payload := []byte(`{
		"httpMethod": "GET",
		"path": "/ignored",
		"requestContext": {"path": "/raw"},
		"headers": {"accept": ["a", null, "b"], "x-empty": null},
		"queryStringParameters": {"q": "1"}
	}`)
	res, err := handler(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"accept":["a","b"],"q":"1","empty":false}`, res.Body)

	_, err = handler(context.Background(), []byte(`{"httpMethod":"GET"}`))
	assert.True(t, lambda.IsMalformedEvent(err))

	_, err = handler(context.Background(), []byte(`not json`))
	assert.True(t, errors.Is(err, lambda.ErrMalformedEvent))
}

func TestApp_DispatchLogsAndMetrics(t *testing.T) {
	app := newTestApp(t, nil)
	app.Router().Get("/", respond("ok"))

	res := app.Dispatch(context.Background(), &lambda.Request{Path: "/", Method: lambda.MethodGet})
	assert.True(t, res.Sent())
	app.Dispatch(context.Background(), &lambda.Request{Path: "/nope", Method: lambda.MethodGet})

	entry := app.hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "no_route", entry.Data["outcome"])

	count, err := testutil.GatherAndCount(app.Container().Metrics.Registry(), "lambo_dispatches_total", "lambo_route_misses_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestApp_ConcurrentDispatch(t *testing.T) {
	app := newTestApp(t, nil)
	app.Router().Get("/", respond(map[string]string{"name": "bob"}))
	handler := app.Handler()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := handler(context.Background(), events.ALBTargetGroupRequest{HTTPMethod: "GET", Path: "/"})
			assert.NoError(t, err)
			assert.Equal(t, `{"name":"bob"}`, res.Body)
		}()
	}
	wg.Wait()
}

func TestApp_MetricsMethodLabel(t *testing.T) {
	app := newTestApp(t, nil)
	app.Router().Get("/", respond("ok"))
	handler := app.Handler()

	for _, method := range []string{"BREW", "propfind", "GET"} {
		_, err := handler(context.Background(), events.ALBTargetGroupRequest{HTTPMethod: method, Path: "/"})
		require.NoError(t, err)
	}

	rec := httptest.NewRecorder()
	app.Container().Metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	assert.Contains(t, body, `lambo_route_misses_total{method="OTHER"} 2`)
	assert.Contains(t, body, `lambo_dispatches_total{method="GET",outcome="handled",status="200"} 1`)
	assert.NotContains(t, body, "BREW")
	assert.NotContains(t, body, "PROPFIND")
}
