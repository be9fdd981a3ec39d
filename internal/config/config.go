package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// No-route policies
const (
	NotFoundPolicyNotFound = "not_found"
	NotFoundPolicyDefault  = "default"
)

// Config holds all configuration for the application
type Config struct {
	Environment string `validate:"required"`
	Port        string `validate:"required,numeric"`
	Log         LogConfig
	Dispatch    DispatchConfig
	CORS        CORSConfig
	RateLimit   RateLimitConfig
	JWT         JWTConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `validate:"required,oneof=trace debug info warn warning error fatal panic"`
	Format string `validate:"required,oneof=json text"`
}

// DispatchConfig holds router dispatch configuration
type DispatchConfig struct {
	Source                string        `validate:"required,oneof=alb apigateway"`
	NotFoundPolicy        string        `validate:"required,oneof=not_found default"`
	HandlerTimeout        time.Duration `validate:"gte=0"`
	SlowDispatchThreshold time.Duration `validate:"gte=0"`
	MultiValueHeaders     bool
}

// CORSConfig holds Cross-Origin Resource Sharing configuration
type CORSConfig struct {
	AllowOrigin  string `validate:"required"`
	AllowMethods string `validate:"required"`
	AllowHeaders string
	MaxAge       int `validate:"gte=0"`
}

// RateLimitConfig holds rate limiting configuration. Zero RPS disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `validate:"gte=0"`
	Burst             int     `validate:"gte=0"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret      string
	ExpiryHours int `validate:"gt=0"`
	Issuer      string
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Set up Viper
	viper.AutomaticEnv()
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("PORT", "8081")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("EVENT_SOURCE", "alb")
	viper.SetDefault("NOT_FOUND_POLICY", NotFoundPolicyNotFound)
	viper.SetDefault("HANDLER_TIMEOUT", "0s")
	viper.SetDefault("SLOW_DISPATCH_THRESHOLD", "1s")
	viper.SetDefault("MULTI_VALUE_HEADERS", false)
	viper.SetDefault("CORS_ALLOW_ORIGIN", "*")
	viper.SetDefault("CORS_ALLOW_METHODS", "GET, POST, OPTIONS, DELETE, PATCH")
	viper.SetDefault("CORS_ALLOW_HEADERS", "Origin, Content-Type, Accept, Authorization, X-Request-ID")
	viper.SetDefault("CORS_MAX_AGE", 600)
	viper.SetDefault("RATE_LIMIT_RPS", 0)
	viper.SetDefault("RATE_LIMIT_BURST", 10)
	viper.SetDefault("JWT_EXPIRY_HOURS", 24)
	viper.SetDefault("JWT_ISSUER", "lambo")

	config := &Config{
		Environment: viper.GetString("ENVIRONMENT"),
		Port:        viper.GetString("PORT"),
		Log: LogConfig{
			Level:  strings.ToLower(viper.GetString("LOG_LEVEL")),
			Format: strings.ToLower(viper.GetString("LOG_FORMAT")),
		},
		Dispatch: DispatchConfig{
			Source:                strings.ToLower(viper.GetString("EVENT_SOURCE")),
			NotFoundPolicy:        strings.ToLower(viper.GetString("NOT_FOUND_POLICY")),
			HandlerTimeout:        viper.GetDuration("HANDLER_TIMEOUT"),
			SlowDispatchThreshold: viper.GetDuration("SLOW_DISPATCH_THRESHOLD"),
			MultiValueHeaders:     viper.GetBool("MULTI_VALUE_HEADERS"),
		},
		CORS: CORSConfig{
			AllowOrigin:  viper.GetString("CORS_ALLOW_ORIGIN"),
			AllowMethods: viper.GetString("CORS_ALLOW_METHODS"),
			AllowHeaders: viper.GetString("CORS_ALLOW_HEADERS"),
			MaxAge:       viper.GetInt("CORS_MAX_AGE"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:             viper.GetInt("RATE_LIMIT_BURST"),
		},
		JWT: JWTConfig{
			Secret:      viper.GetString("JWT_SECRET"),
			ExpiryHours: viper.GetInt("JWT_EXPIRY_HOURS"),
			Issuer:      viper.GetString("JWT_ISSUER"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Environment: "development",
		Port:        "8081",
		Log:         LogConfig{Level: "info", Format: "text"},
		Dispatch: DispatchConfig{
			Source:                "alb",
			NotFoundPolicy:        NotFoundPolicyNotFound,
			SlowDispatchThreshold: time.Second,
		},
		CORS: CORSConfig{
			AllowOrigin:  "*",
			AllowMethods: "GET, POST, OPTIONS, DELETE, PATCH",
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
			MaxAge:       600,
		},
		RateLimit: RateLimitConfig{Burst: 10},
		JWT:       JWTConfig{ExpiryHours: 24, Issuer: "lambo"},
	}
}

var validate = validator.New()

// Validate checks the configuration against its struct constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsProduction reports whether the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// GetEnv gets an environment variable with a fallback value
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
