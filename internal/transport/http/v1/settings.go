package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lingwo/essayd/internal/domain"
)

// GetSettings returns the caller's settings, falling back to defaults.
// GET /settings
func (h *Handler) GetSettings(c echo.Context) error {
	claims, err := mustClaims(c)
	if claims == nil {
		return err
	}

	settings, err := h.service.Settings(c.Request().Context(), claims.UserID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, settings)
}

// UpdateSettings applies a partial settings update.
// PATCH /settings
func (h *Handler) UpdateSettings(c echo.Context) error {
	var patch domain.SettingsPatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	claims, err := mustClaims(c)
	if claims == nil {
		return err
	}

	settings, err := h.service.UpdateSettings(c.Request().Context(), claims.UserID, patch)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, settings)
}
