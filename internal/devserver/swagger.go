package devserver

import (
	// Registers the swagger doc served under /_lambo/swagger
	_ "lambo/internal/devserver/docs"
)

// @title Lambo Dev Server
// @version 1.0
// @description Local HTTP front for a lambo app: requests are dispatched as load balancer events.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8081
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
