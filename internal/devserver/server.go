// Package devserver serves an App over plain HTTP for local development.
// Each request is translated into a load balancer event, dispatched through
// the app's Lambda entry point, and the result is written back.
package devserver

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"lambo/internal/middleware"
	"lambo/pkg/lambda"
	"lambo/pkg/server"
)

// Prefix is reserved for the dev server's own endpoints
const Prefix = "/_lambo"

// Server is the development HTTP front for an App
type Server struct {
	app     *server.App
	handler server.ALBHandler
	engine  *gin.Engine
	logger  *logrus.Logger
}

// New builds the gin engine for app. The app's routes are frozen.
func New(app *server.App) *Server {
	c := app.Container()
	if c.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		app:     app,
		handler: app.Handler(),
		engine:  gin.New(),
		logger:  c.Logger,
	}

	s.engine.Use(middleware.GinRequestID())
	s.engine.Use(middleware.GinRequestLogger(s.logger))
	s.engine.Use(middleware.GinRecovery(s.logger))

	internal := s.engine.Group(Prefix)
	{
		internal.GET("/health", s.health)
		internal.GET("/metrics", gin.WrapH(c.Metrics.Handler()))
		internal.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Everything else goes through the app
	s.engine.NoRoute(s.forward)

	return s
}

// Engine returns the underlying gin engine
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.logger.WithFields(logrus.Fields{
		"addr":   addr,
		"source": s.app.Source().String(),
	}).Info("Dev server started")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down dev server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	s.logger.Info("Dev server exited")
	return nil
}

// health godoc
// @Summary Dev server health
// @Tags devserver
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /_lambo/health [get]
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"source":    s.app.Source().String(),
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) forward(c *gin.Context) {
	event, err := ToEvent(c.Request, s.app.Container().Config.Dispatch.MultiValueHeaders)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody(c, http.StatusBadRequest, err.Error()))
		return
	}

	result, err := s.handler(c.Request.Context(), event)
	if err != nil {
		// A load balancer answers 502 when the function itself fails
		s.logger.WithError(err).Warn("Lambda handler returned an error")
		c.AbortWithStatusJSON(http.StatusBadGateway, errorBody(c, http.StatusBadGateway, err.Error()))
		return
	}

	if err := WriteResult(c.Writer, result); err != nil {
		s.logger.WithError(err).Error("Failed to write result")
	}
}

func errorBody(c *gin.Context, status int, message string) lambda.ErrorResponse {
	return lambda.ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		RequestID: c.GetString(middleware.RequestIDKey),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// ToEvent translates an HTTP request into a load balancer event. Header
// names are lower-cased the way the load balancer delivers them. Bodies
// that are not valid UTF-8 are base64 encoded.
func ToEvent(r *http.Request, multiValue bool) (events.ALBTargetGroupRequest, error) {
	event := events.ALBTargetGroupRequest{
		HTTPMethod: r.Method,
		Path:       r.URL.Path,
	}

	if multiValue {
		event.MultiValueHeaders = make(map[string][]string, len(r.Header))
		for k, v := range r.Header {
			event.MultiValueHeaders[strings.ToLower(k)] = v
		}
		event.MultiValueQueryStringParameters = r.URL.Query()
	} else {
		event.Headers = make(map[string]string, len(r.Header))
		for k := range r.Header {
			event.Headers[strings.ToLower(k)] = r.Header.Get(k)
		}
		query := r.URL.Query()
		event.QueryStringParameters = make(map[string]string, len(query))
		for k := range query {
			event.QueryStringParameters[k] = query.Get(k)
		}
	}
	if r.Host != "" {
		if multiValue {
			event.MultiValueHeaders["host"] = []string{r.Host}
		} else {
			event.Headers["host"] = r.Host
		}
	}

	if r.Body != nil {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return event, err
		}
		if utf8.Valid(body) {
			event.Body = string(body)
		} else {
			event.Body = base64.StdEncoding.EncodeToString(body)
			event.IsBase64Encoded = true
		}
	}

	return event, nil
}

// WriteResult writes a load balancer result to w
func WriteResult(w http.ResponseWriter, result events.ALBTargetGroupResponse) error {
	for k, v := range result.Headers {
		w.Header().Set(k, v)
	}
	for k, values := range result.MultiValueHeaders {
		w.Header().Del(k)
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}

	body := []byte(result.Body)
	if result.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(result.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadGateway)
			return err
		}
		body = decoded
	}

	w.WriteHeader(result.StatusCode)
	_, err := w.Write(body)
	return err
}
