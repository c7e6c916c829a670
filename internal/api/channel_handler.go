package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/victorivanov/parley/internal/auth"
	"github.com/victorivanov/parley/internal/models"
	"github.com/victorivanov/parley/internal/service"
)

// ChannelHandler handles channel, DM, and override endpoints.
type ChannelHandler struct {
	service *service.ChannelService
}

// NewChannelHandler creates a ChannelHandler.
func NewChannelHandler(svc *service.ChannelService) *ChannelHandler {
	return &ChannelHandler{service: svc}
}

type createChannelRequest struct {
	Name       string  `json:"name"`
	Kind       string  `json:"kind"`
	Topic      *string `json:"topic,omitempty"`
	CategoryID *int64  `json:"category_id,string,omitempty"`
}

// CreateChannel handles POST /api/v1/servers/:id/channels.
func (h *ChannelHandler) CreateChannel(c echo.Context) error {
	serverID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid server id")
	}

	var req createChannelRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}
	kind := models.ChannelKind(req.Kind)
	if kind == "" {
		kind = models.ChannelKindText
	}

	channel, err := h.service.CreateChannel(c.Request().Context(), serverID, auth.GetUserID(c), kind, req.Name, req.Topic, req.CategoryID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return successJSON(c, http.StatusCreated, channel)
}

// ListChannels handles GET /api/v1/servers/:id/channels.
func (h *ChannelHandler) ListChannels(c echo.Context) error {
	serverID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid server id")
	}

	channels, err := h.service.ListChannels(c.Request().Context(), serverID, auth.GetUserID(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return successJSON(c, http.StatusOK, channels)
}

// GetChannel handles GET /api/v1/channels/:id.
func (h *ChannelHandler) GetChannel(c echo.Context) error {
	channelID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid channel id")
	}

	channel, err := h.service.GetChannel(c.Request().Context(), channelID, auth.GetUserID(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return successJSON(c, http.StatusOK, channel)
}

type updateChannelRequest struct {
	Name     *string `json:"name,omitempty"`
	Topic    *string `json:"topic,omitempty"`
	Position *int    `json:"position,omitempty"`
}

// UpdateChannel handles PATCH /api/v1/channels/:id.
func (h *ChannelHandler) UpdateChannel(c echo.Context) error {
	channelID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid channel id")
	}

	var req updateChannelRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	channel, err := h.service.UpdateChannel(c.Request().Context(), channelID, auth.GetUserID(c), req.Name, req.Topic, req.Position)
	if err != nil {
		return mapServiceError(c, err)
	}
	return successJSON(c, http.StatusOK, channel)
}

// DeleteChannel handles DELETE /api/v1/channels/:id.
func (h *ChannelHandler) DeleteChannel(c echo.Context) error {
	channelID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid channel id")
	}

	if err := h.service.DeleteChannel(c.Request().Context(), channelID, auth.GetUserID(c)); err != nil {
		return mapServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type overrideRequest struct {
	TargetType string   `json:"target_type"`
	TargetID   int64    `json:"target_id,string"`
	Allow      []string `json:"allow"`
	Deny       []string `json:"deny"`
}

type applyOverridesRequest struct {
	Overrides []overrideRequest `json:"overrides"`
}

// ApplyOverrides handles PUT /api/v1/channels/:id/permissions.
// The request replaces the channel's whole override list.
func (h *ChannelHandler) ApplyOverrides(c echo.Context) error {
	channelID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid channel id")
	}

	var req applyOverridesRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	overrides := make([]models.Override, len(req.Overrides))
	for i, o := range req.Overrides {
		overrides[i] = models.Override{
			TargetType: models.OverrideTarget(o.TargetType),
			TargetID:   o.TargetID,
			Allow:      o.Allow,
			Deny:       o.Deny,
		}
	}

	channel, err := h.service.ApplyOverrides(c.Request().Context(), channelID, auth.GetUserID(c), overrides)
	if err != nil {
		return mapServiceError(c, err)
	}
	return successJSON(c, http.StatusOK, channel)
}

type createDMRequest struct {
	RecipientID int64 `json:"recipient_id,string"`
}

// CreateDM handles POST /api/v1/users/@me/channels.
func (h *ChannelHandler) CreateDM(c echo.Context) error {
	var req createDMRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	channel, err := h.service.GetOrCreateDM(c.Request().Context(), auth.GetUserID(c), req.RecipientID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return successJSON(c, http.StatusOK, channel)
}

// ListDMs handles GET /api/v1/users/@me/channels.
func (h *ChannelHandler) ListDMs(c echo.Context) error {
	channels, err := h.service.ListDMs(c.Request().Context(), auth.GetUserID(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return successJSON(c, http.StatusOK, channels)
}

type createCategoryRequest struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// CreateCategory handles POST /api/v1/servers/:id/categories.
func (h *ChannelHandler) CreateCategory(c echo.Context) error {
	serverID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid server id")
	}

	var req createCategoryRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	category, err := h.service.CreateCategory(c.Request().Context(), serverID, auth.GetUserID(c), req.Name, req.Position)
	if err != nil {
		return mapServiceError(c, err)
	}
	return successJSON(c, http.StatusCreated, category)
}

// ListCategories handles GET /api/v1/servers/:id/categories.
func (h *ChannelHandler) ListCategories(c echo.Context) error {
	serverID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid server id")
	}

	categories, err := h.service.ListCategories(c.Request().Context(), serverID, auth.GetUserID(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return successJSON(c, http.StatusOK, categories)
}
