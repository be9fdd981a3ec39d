// Package middleware provides chain handlers for the router and gin
// middlewares for the dev server.
package middleware

import (
	"context"
	"net/http"
	"strconv"

	"lambo/internal/config"
	"lambo/pkg/lambda"
	"lambo/pkg/router"
)

// CORS sets Cross-Origin Resource Sharing headers. Preflight OPTIONS
// requests are answered with 204 and stop the chain.
func CORS(cfg config.CORSConfig) router.Handler {
	return func(ctx context.Context, req *lambda.Request, res *lambda.Response) (router.Outcome, error) {
		res.SetHeader("Access-Control-Allow-Origin", cfg.AllowOrigin)
		res.SetHeader("Access-Control-Allow-Methods", cfg.AllowMethods)
		res.SetHeader("Access-Control-Allow-Headers", cfg.AllowHeaders)
		res.SetHeader("Access-Control-Expose-Headers", "Content-Length, "+HeaderRequestID)
		if cfg.MaxAge > 0 {
			res.SetHeader("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		if req.Method == lambda.MethodOptions {
			return router.Done(), res.End(http.StatusNoContent)
		}

		return router.Next(), nil
	}
}
