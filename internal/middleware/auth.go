package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"lambo/pkg/lambda"
	"lambo/pkg/router"
)

// UserRole represents user roles in the system
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleOperator UserRole = "operator"
	RoleViewer   UserRole = "viewer"
)

// Claims represents JWT claims
type Claims struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole reports whether the claims carry role
func (c *Claims) HasRole(role string) bool {
	return c != nil && slices.Contains(c.Roles, role)
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret     string
	TokenDuration time.Duration
	Issuer        string
}

// ErrNoSecret is returned when tokens are used without a configured secret
var ErrNoSecret = errors.New("JWT secret is not configured")

// AuthService handles authentication operations
type AuthService struct {
	config *AuthConfig
}

// NewAuthService creates a new authentication service
func NewAuthService(config *AuthConfig) *AuthService {
	if config.TokenDuration == 0 {
		config.TokenDuration = 24 * time.Hour
	}
	if config.Issuer == "" {
		config.Issuer = "lambo"
	}
	return &AuthService{config: config}
}

// GenerateToken generates a JWT token for a user
func (a *AuthService) GenerateToken(userID, username, email string, roles []string) (string, error) {
	if a.config.JWTSecret == "" {
		return "", ErrNoSecret
	}

	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		Email:    email,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.config.TokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    a.config.Issuer,
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(a.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken validates a JWT token and returns the claims
func (a *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	if a.config.JWTSecret == "" {
		return nil, ErrNoSecret
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(a.config.JWTSecret), nil
	}, jwt.WithIssuer(a.config.Issuer))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// RefreshToken generates a new token with extended expiration
func (a *AuthService) RefreshToken(tokenString string) (string, error) {
	claims, err := a.ValidateToken(tokenString)
	if err != nil {
		return "", fmt.Errorf("invalid token for refresh: %w", err)
	}

	return a.GenerateToken(claims.UserID, claims.Username, claims.Email, claims.Roles)
}

type claimsKey struct{}

// ClaimsFromContext returns the claims stored by Authenticated, if any
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok
}

// RequireJWT is a gate handler: it continues the chain only for requests
// carrying a valid bearer token with at least one of roles (any role when
// none are given). Refused requests get a 401 or 403 error body.
func RequireJWT(auth *AuthService, logger *logrus.Logger, roles ...string) router.Handler {
	return Authenticated(auth, logger, func(ctx context.Context, req *lambda.Request, res *lambda.Response) (router.Outcome, error) {
		return router.Next(), nil
	}, roles...)
}

// Authenticated wraps h so it only runs for authorized requests, with the
// token's claims available through ClaimsFromContext. A nil logger logs to
// the logrus standard logger.
func Authenticated(auth *AuthService, logger *logrus.Logger, h router.Handler, roles ...string) router.Handler {
	logger = loggerOrStandard(logger)

	return func(ctx context.Context, req *lambda.Request, res *lambda.Response) (router.Outcome, error) {
		authHeader := req.Header("Authorization")
		if authHeader == "" {
			return refuse(ctx, res, http.StatusUnauthorized, "Authorization header is required")
		}

		// Extract token from "Bearer <token>" format
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return refuse(ctx, res, http.StatusUnauthorized, "Invalid authorization header format. Expected: Bearer <token>")
		}

		claims, err := auth.ValidateToken(tokenParts[1])
		if err != nil {
			logger.WithFields(logrus.Fields{
				"error":      err.Error(),
				"path":       req.Path,
				"request_id": lambda.RequestIDFromContext(ctx),
			}).Warn("Token validation failed")
			return refuse(ctx, res, http.StatusUnauthorized, "Invalid or expired token")
		}

		if len(roles) > 0 && !slices.ContainsFunc(roles, claims.HasRole) {
			logger.WithFields(logrus.Fields{
				"user_id":        claims.UserID,
				"user_roles":     claims.Roles,
				"required_roles": roles,
				"path":           req.Path,
			}).Warn("Authorization failed - insufficient permissions")
			return refuse(ctx, res, http.StatusForbidden, "Insufficient permissions")
		}

		logger.WithFields(logrus.Fields{
			"user_id":  claims.UserID,
			"username": claims.Username,
			"path":     req.Path,
		}).Debug("User authenticated successfully")

		return h(context.WithValue(ctx, claimsKey{}, claims), req, res)
	}
}

func loggerOrStandard(logger *logrus.Logger) *logrus.Logger {
	if logger == nil {
		return logrus.StandardLogger()
	}
	return logger
}

func refuse(ctx context.Context, res *lambda.Response, status int, message string) (router.Outcome, error) {
	if err := res.SendError(ctx, lambda.NewStatusError(status, message)); err != nil {
		return router.Done(), err
	}
	return router.Done(), nil
}
