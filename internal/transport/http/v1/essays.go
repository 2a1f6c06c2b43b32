package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/lingwo/essayd/internal/domain"
)

// EssayStartRequest is the request to begin a new drafting session.
type EssayStartRequest struct {
	Kind   domain.EssayKind   `json:"type"`
	Topic  string             `json:"theme"`
	Source domain.TopicSource `json:"theme_source,omitempty"`
}

// EssayTextRequest carries a draft or final text.
type EssayTextRequest struct {
	Text string `json:"text"`
}

// StartEssay begins a new drafting session.
// POST /essay/start
func (h *Handler) StartEssay(c echo.Context) error {
	ctx := c.Request().Context()

	var req EssayStartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Topic == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "theme is required"})
	}

	claims, err := mustClaims(c)
	if claims == nil {
		return err
	}

	// Topics from untrusted sources go through model validation, so the
	// start itself may spend a model call.
	if !req.Source.Trusted() {
		ok, err := h.guardModelAccess(c, "essay.start")
		if !ok {
			return err
		}
	}

	session, err := h.service.StartEssay(ctx, claims.UserID, req.Kind, req.Topic, req.Source)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// SaveEssay overwrites the draft text of the active session.
// POST /essay/save
func (h *Handler) SaveEssay(c echo.Context) error {
	ctx := c.Request().Context()

	var req EssayTextRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	claims, err := mustClaims(c)
	if claims == nil {
		return err
	}

	session, err := h.service.SaveEssay(ctx, claims.UserID, req.Text)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// CurrentEssay returns the active session, if any.
// GET /essay
func (h *Handler) CurrentEssay(c echo.Context) error {
	claims, err := mustClaims(c)
	if claims == nil {
		return err
	}

	session, err := h.service.CurrentEssay(c.Request().Context(), claims.UserID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// EndEssay submits the essay for scoring and returns the record immediately.
// POST /essay/end
func (h *Handler) EndEssay(c echo.Context) error {
	ctx := c.Request().Context()

	var req EssayTextRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	claims, err := mustClaims(c)
	if claims == nil {
		return err
	}

	if ok, err := h.guardModelAccess(c, "essay.end"); !ok {
		return err
	}

	record, err := h.service.EndEssay(ctx, claims.UserID, req.Text)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, record)
}

// ClearEssay abandons the active session without submitting.
// POST /essay/clear
func (h *Handler) ClearEssay(c echo.Context) error {
	claims, err := mustClaims(c)
	if claims == nil {
		return err
	}

	if err := h.service.ClearEssay(c.Request().Context(), claims.UserID); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"ok": true})
}

// ListEssays lists the caller's submitted essays.
// GET /essays
func (h *Handler) ListEssays(c echo.Context) error {
	claims, err := mustClaims(c)
	if claims == nil {
		return err
	}

	filter := domain.ListFilter{
		Kind:   domain.EssayKind(c.QueryParam("type")),
		Search: c.QueryParam("search"),
		Order:  domain.ListOrder(c.QueryParam("order")),
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid limit"})
		}
		filter.Limit = limit
	}

	items, err := h.service.ListEssays(c.Request().Context(), claims.UserID, filter)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"essays": items})
}

// GetEssay returns one submitted essay with its scores.
// GET /essay/:id
func (h *Handler) GetEssay(c echo.Context) error {
	claims, err := mustClaims(c)
	if claims == nil {
		return err
	}

	record, err := h.service.GetEssay(c.Request().Context(), claims.UserID, c.Param("id"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, record)
}

// DeleteEssay removes one submitted essay.
// DELETE /essay/:id
func (h *Handler) DeleteEssay(c echo.Context) error {
	claims, err := mustClaims(c)
	if claims == nil {
		return err
	}

	if err := h.service.DeleteEssay(c.Request().Context(), claims.UserID, c.Param("id")); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"ok": true})
}
