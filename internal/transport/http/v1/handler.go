// Package v1 provides HTTP handlers for the essay service.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lingwo/essayd/internal/auth"
	"github.com/lingwo/essayd/internal/domain"
	"github.com/lingwo/essayd/internal/ratelimit"
	"github.com/lingwo/essayd/internal/service"
	"github.com/lingwo/essayd/policy"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	policy  *policy.Engine
	limiter *ratelimit.Limiter
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service, eng *policy.Engine, limiter *ratelimit.Limiter) *Handler {
	return &Handler{
		service: svc,
		policy:  eng,
		limiter: limiter,
	}
}

// RegisterRoutes registers the authenticated routes on the given group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	// Session lifecycle
	g.POST("/essay/start", h.StartEssay)
	g.POST("/essay/save", h.SaveEssay)
	g.GET("/essay", h.CurrentEssay)
	g.POST("/essay/end", h.EndEssay)
	g.POST("/essay/clear", h.ClearEssay)

	// Topics
	g.POST("/essay/validate_theme", h.ValidateTheme)
	g.GET("/random_topic", h.RandomTopic)

	// History
	g.GET("/essays", h.ListEssays)
	g.GET("/essay/:id", h.GetEssay)
	g.DELETE("/essay/:id", h.DeleteEssay)

	// Settings
	g.GET("/settings", h.GetSettings)
	g.PATCH("/settings", h.UpdateSettings)
}

// Health returns health status.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// guardModelAccess runs the policy check and the rate limiter for an
// operation that will invoke the model. It writes the response itself and
// returns false when the request must not proceed.
func (h *Handler) guardModelAccess(c echo.Context, operation string) (bool, error) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		return false, c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing credentials"})
	}
	ctx := c.Request().Context()

	allowed, err := h.policy.Allow(ctx, policy.Input{
		Operation: operation,
		UserID:    claims.UserID,
		Role:      claims.Role,
	})
	if err != nil {
		return false, c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if !allowed {
		return false, c.JSON(http.StatusForbidden, map[string]string{"error": "доступ к модели запрещён"})
	}

	if err := h.limiter.Allow(ctx, claims.UserID); err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			return false, c.JSON(http.StatusTooManyRequests, map[string]string{"error": "слишком много запросов, попробуйте позже"})
		}
		return false, c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return true, nil
}

// jsonError maps domain sentinels to HTTP statuses.
func jsonError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTopic):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrRateLimited):
		status = http.StatusTooManyRequests
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}

func mustClaims(c echo.Context) (*domain.Claims, error) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		return nil, c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing credentials"})
	}
	return claims, nil
}
