package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lambo/internal/config"
	"lambo/pkg/lambda"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestID(t *testing.T) {
	h := RequestID()

	res := lambda.NewResponse()
	ctx := lambda.WithRequestID(context.Background(), "req-1")
	out, err := h(ctx, &lambda.Request{Path: "/", Method: lambda.MethodGet}, res)
	require.NoError(t, err)
	assert.True(t, out.IsNext())
	assert.Equal(t, "req-1", res.Headers.Get(HeaderRequestID))

	res = lambda.NewResponse()
	_, err = h(context.Background(), &lambda.Request{Path: "/", Method: lambda.MethodGet}, res)
	require.NoError(t, err)
	assert.False(t, res.Headers.Has(HeaderRequestID))
}

func TestCORS(t *testing.T) {
	h := CORS(config.Default().CORS)

	t.Run("simple request continues", func(t *testing.T) {
		res := lambda.NewResponse()
		out, err := h(context.Background(), &lambda.Request{Path: "/", Method: lambda.MethodGet}, res)
		require.NoError(t, err)
		assert.True(t, out.IsNext())
		assert.False(t, res.Sent())
		assert.Equal(t, "*", res.Headers.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "600", res.Headers.Get("Access-Control-Max-Age"))
	})

	t.Run("preflight ends with 204", func(t *testing.T) {
		res := lambda.NewResponse()
		out, err := h(context.Background(), &lambda.Request{Path: "/", Method: lambda.MethodOptions}, res)
		require.NoError(t, err)
		assert.False(t, out.IsNext())
		assert.True(t, res.Sent())
		assert.Equal(t, http.StatusNoContent, res.StatusCode)
		assert.Nil(t, res.Body)
	})
}

func TestRateLimiter(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h := RateLimiter(logger, 0.001, 2)
	req := &lambda.Request{Path: "/", Method: lambda.MethodGet}

	for i := 0; i < 2; i++ {
		out, err := h(context.Background(), req, lambda.NewResponse())
		require.NoError(t, err)
		assert.True(t, out.IsNext(), "request %d within burst", i)
	}

	res := lambda.NewResponse()
	out, err := h(context.Background(), req, res)
	require.NoError(t, err)
	assert.False(t, out.IsNext())
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)
	assert.Contains(t, res.BodyString(), "Too many requests")

	require.Len(t, hook.AllEntries(), 1, "only the refused request is logged")
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "Rate limit exceeded", entry.Message)
	assert.Equal(t, "/", entry.Data["path"])
}

func TestGinMiddlewares(t *testing.T) {
	logger, hook := test.NewNullLogger()

	engine := gin.New()
	engine.Use(GinRequestID(), GinRequestLogger(logger), GinRecovery(logger))
	engine.GET("/ok", func(c *gin.Context) {
		c.String(http.StatusOK, c.Request.Header.Get(HeaderRequestID))
	})
	engine.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.String(), "request ID is generated")

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(HeaderRequestID, "fixed")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, bytes.Contains(rec.Body.Bytes(), []byte(`"request_id":"fixed"`)))

	var recovered, logged bool
	for _, entry := range hook.AllEntries() {
		switch entry.Message {
		case "Recovered from panic":
			recovered = true
		case "Server error":
			logged = entry.Level == logrus.ErrorLevel
		}
	}
	assert.True(t, recovered)
	assert.True(t, logged)
}
