package server

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"lambo/internal/config"
	"lambo/internal/logging"
	"lambo/internal/metrics"
	"lambo/internal/middleware"
)

// Container holds all application dependencies
type Container struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Metrics *metrics.Metrics
	Auth    *middleware.AuthService
}

// NewContainer creates a new dependency injection container. A nil config
// uses config.Default().
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	container := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.NewMetrics(),
		Auth: middleware.NewAuthService(&middleware.AuthConfig{
			JWTSecret:     cfg.JWT.Secret,
			TokenDuration: hours(cfg.JWT.ExpiryHours),
			Issuer:        cfg.JWT.Issuer,
		}),
	}

	logger.WithFields(logrus.Fields{
		"environment":      cfg.Environment,
		"source":           cfg.Dispatch.Source,
		"not_found_policy": cfg.Dispatch.NotFoundPolicy,
		"deployment_mode":  config.GetDeploymentMode(),
	}).Debug("Container initialized")

	return container, nil
}

// Close cleans up all resources
func (c *Container) Close() error {
	if c.Logger != nil {
		c.Logger.Debug("Container closed")
	}
	return nil
}

func hours(h int) time.Duration {
	return time.Duration(h) * time.Hour
}
