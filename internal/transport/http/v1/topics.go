package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// ValidateThemeRequest is the request to check a user-typed topic.
type ValidateThemeRequest struct {
	Topic string `json:"theme"`
}

// ValidateTheme asks the model whether a topic is usable for an essay.
// POST /essay/validate_theme
func (h *Handler) ValidateTheme(c echo.Context) error {
	var req ValidateThemeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	if ok, err := h.guardModelAccess(c, "topic.validate"); !ok {
		return err
	}

	verdict, err := h.service.ValidateTopic(c.Request().Context(), req.Topic)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, verdict)
}

// RandomTopic returns a topic suggestion, optionally narrowed to sections.
// GET /random_topic?sections=a,b
func (h *Handler) RandomTopic(c echo.Context) error {
	var sections []string
	if raw := c.QueryParam("sections"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				sections = append(sections, s)
			}
		}
	}

	topic, err := h.service.RandomTopic(c.Request().Context(), sections)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"theme": topic})
}
