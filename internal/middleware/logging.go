package middleware

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"lambo/pkg/lambda"
	"lambo/pkg/router"
)

// HeaderRequestID carries the request ID in and out
const HeaderRequestID = "X-Request-ID"

// RequestIDKey is the gin context key holding the request ID
const RequestIDKey = "request_id"

// RequestID echoes the dispatch request ID back as X-Request-ID and
// continues the chain.
func RequestID() router.Handler {
	return func(ctx context.Context, req *lambda.Request, res *lambda.Response) (router.Outcome, error) {
		if id := lambda.RequestIDFromContext(ctx); id != "" {
			res.SetHeader(HeaderRequestID, id)
		}
		return router.Next(), nil
	}
}

// GinRequestID makes sure every dev server request carries an X-Request-ID
// header before it is turned into an event.
func GinRequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
			c.Request.Header.Set(HeaderRequestID, requestID)
		}

		c.Set(RequestIDKey, requestID)
		c.Next()
	}
}

// GinRequestLogger logs every dev server request with logger
func GinRequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		fields := logrus.Fields{
			"request_id":    c.GetString(RequestIDKey),
			"method":        c.Request.Method,
			"path":          path,
			"status_code":   c.Writer.Status(),
			"latency_ms":    float64(latency.Nanoseconds()) / 1000000,
			"client_ip":     c.ClientIP(),
			"user_agent":    c.Request.UserAgent(),
			"response_size": c.Writer.Size(),
		}
		if raw != "" {
			fields["query"] = raw
		}

		switch {
		case c.Writer.Status() >= 500:
			logger.WithFields(fields).Error("Server error")
		case c.Writer.Status() >= 400:
			logger.WithFields(fields).Warn("Client error")
		default:
			logger.WithFields(fields).Info("Request completed")
		}
	}
}

// GinRecovery turns a panic in the dev server into a JSON 500 response
func GinRecovery(logger *logrus.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(logrus.Fields{
					"request_id": c.GetString(RequestIDKey),
					"method":     c.Request.Method,
					"path":       c.Request.URL.Path,
					"panic":      r,
					"stack":      string(debug.Stack()),
				}).Error("Recovered from panic")

				c.AbortWithStatusJSON(http.StatusInternalServerError, lambda.ErrorResponse{
					Error:     http.StatusText(http.StatusInternalServerError),
					Message:   "An internal error occurred",
					RequestID: c.GetString(RequestIDKey),
					Timestamp: time.Now().UTC().Format(time.RFC3339),
				})
			}
		}()

		c.Next()
	}
}
