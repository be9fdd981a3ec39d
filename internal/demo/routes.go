// Package demo is a small application built on the router: a profile at
// the root, a JWT protected admin dashboard and a JSON echo endpoint.
package demo

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"lambo/internal/middleware"
	"lambo/pkg/lambda"
	"lambo/pkg/router"
	"lambo/pkg/server"
)

var validate = validator.New()

// Profile is served at GET /
type Profile struct {
	Name string `json:"name"`
}

// Dashboard is served at GET /admin/dashboard
type Dashboard struct {
	User  string   `json:"user"`
	Roles []string `json:"roles"`
}

// EchoRequest is the body accepted by POST /echo
type EchoRequest struct {
	Message string `json:"message" validate:"required,max=1024"`
}

// EchoResponse is returned by POST /echo
type EchoResponse struct {
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// Register adds the demo routes to app
func Register(app *server.App) error {
	c := app.Container()
	cors := middleware.CORS(c.Config.CORS)
	requestID := middleware.RequestID()

	root := app.Router()
	root.Get("/", router.Chain(requestID, profile))

	admin := router.New("/admin")
	admin.Get("/dashboard", router.Chain(
		requestID,
		middleware.Authenticated(c.Auth, c.Logger, dashboard, string(middleware.RoleAdmin)),
	))
	root.AddSubRouter(admin)

	echoChain := []router.Handler{requestID, cors}
	if rl := c.Config.RateLimit; rl.RequestsPerSecond > 0 {
		echoChain = append(echoChain, middleware.RateLimiter(c.Logger, rl.RequestsPerSecond, rl.Burst))
	}
	echoChain = append(echoChain, echo)
	root.Post("/echo", router.Chain(echoChain...))
	root.Options("/echo", cors)

	return nil
}

// profile godoc
// @Summary Profile
// @Tags demo
// @Produce json
// @Success 200 {object} demo.Profile
// @Router / [get]
func profile(ctx context.Context, req *lambda.Request, res *lambda.Response) (router.Outcome, error) {
	return router.Respond(Profile{Name: "bob"}), nil
}

// dashboard godoc
// @Summary Admin dashboard
// @Tags demo
// @Produce json
// @Security BearerAuth
// @Success 200 {object} demo.Dashboard
// @Failure 401 {object} lambda.ErrorResponse
// @Failure 403 {object} lambda.ErrorResponse
// @Router /admin/dashboard [get]
func dashboard(ctx context.Context, req *lambda.Request, res *lambda.Response) (router.Outcome, error) {
	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		return router.Done(), lambda.NewStatusError(http.StatusUnauthorized, "")
	}
	return router.Respond(Dashboard{User: claims.Username, Roles: claims.Roles}), nil
}

// echo godoc
// @Summary Echo a message
// @Tags demo
// @Accept json
// @Produce json
// @Param request body demo.EchoRequest true "Message to echo"
// @Success 200 {object} demo.EchoResponse
// @Failure 400 {object} lambda.ErrorResponse
// @Failure 429 {object} lambda.ErrorResponse
// @Router /echo [post]
func echo(ctx context.Context, req *lambda.Request, res *lambda.Response) (router.Outcome, error) {
	body, err := decodeBody(req)
	if err != nil {
		return router.Done(), lambda.WrapStatusError(http.StatusBadRequest, err)
	}

	var in EchoRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return router.Done(), lambda.NewStatusError(http.StatusBadRequest, "Request body must be a JSON object")
	}
	if err := validate.Struct(in); err != nil {
		return router.Done(), lambda.NewStatusError(http.StatusBadRequest, validationMessage(err))
	}

	return router.Respond(EchoResponse{
		Message:   in.Message,
		RequestID: lambda.RequestIDFromContext(ctx),
	}), nil
}

func decodeBody(req *lambda.Request) ([]byte, error) {
	body := req.BodyString()
	if req.IsBase64Encoded != nil && *req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 body: %w", err)
		}
		return decoded, nil
	}
	return []byte(body), nil
}

func validationMessage(err error) string {
	var msgs []string
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed on the '%s' rule", fe.Field(), fe.Tag()))
		}
	}
	if len(msgs) == 0 {
		return err.Error()
	}
	return strings.Join(msgs, "; ")
}
