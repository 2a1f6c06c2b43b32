// Package http provides the HTTP server for the essay service.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/lingwo/essayd/internal/auth"
	"github.com/lingwo/essayd/internal/ratelimit"
	"github.com/lingwo/essayd/internal/service"
	v1 "github.com/lingwo/essayd/internal/transport/http/v1"
	"github.com/lingwo/essayd/policy"
)

// NewServer creates and configures the HTTP server. All essay routes require
// a verified token; only the health check is open.
func NewServer(svc *service.Service, verifier *auth.Verifier, eng *policy.Engine, limiter *ratelimit.Limiter) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	handler := v1.NewHandler(svc, eng, limiter)

	e.GET("/health", handler.Health)

	authed := e.Group("", verifier.Middleware())
	handler.RegisterRoutes(authed)

	return e
}
