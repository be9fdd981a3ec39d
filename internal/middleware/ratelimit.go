package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"lambo/pkg/lambda"
	"lambo/pkg/router"
)

// RateLimiter refuses requests beyond requestsPerSecond (with burstSize
// headroom) with a 429 error body. The limiter is shared by every request
// that reaches this handler within one execution environment.
func RateLimiter(logger *logrus.Logger, requestsPerSecond float64, burstSize int) router.Handler {
	logger = loggerOrStandard(logger)
	limiter := rate.NewLimiter(rate.Limit(requestsPerSecond), burstSize)

	return func(ctx context.Context, req *lambda.Request, res *lambda.Response) (router.Outcome, error) {
		if !limiter.Allow() {
			logger.WithFields(logrus.Fields{
				"request_id": lambda.RequestIDFromContext(ctx),
				"path":       req.Path,
				"user_agent": req.Header("User-Agent"),
			}).Warn("Rate limit exceeded")

			message := fmt.Sprintf("Too many requests. Limit: %.1f requests per second", requestsPerSecond)
			return refuse(ctx, res, http.StatusTooManyRequests, message)
		}
		return router.Next(), nil
	}
}
