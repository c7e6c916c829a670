package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/victorivanov/parley/internal/auth"
	"github.com/victorivanov/parley/internal/service"
)

// MemberHandler handles server membership endpoints.
type MemberHandler struct {
	service *service.MemberService
}

// NewMemberHandler creates a MemberHandler.
func NewMemberHandler(svc *service.MemberService) *MemberHandler {
	return &MemberHandler{service: svc}
}

// Join handles PUT /api/v1/servers/:id/members/@me.
func (h *MemberHandler) Join(c echo.Context) error {
	serverID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid server id")
	}

	member, err := h.service.Join(c.Request().Context(), serverID, auth.GetUserID(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return successJSON(c, http.StatusCreated, member)
}

// Leave handles DELETE /api/v1/servers/:id/members/@me.
func (h *MemberHandler) Leave(c echo.Context) error {
	serverID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid server id")
	}

	if err := h.service.Leave(c.Request().Context(), serverID, auth.GetUserID(c)); err != nil {
		return mapServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// List handles GET /api/v1/servers/:id/members.
func (h *MemberHandler) List(c echo.Context) error {
	serverID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid server id")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	members, err := h.service.List(c.Request().Context(), serverID, auth.GetUserID(c), limit, offset)
	if err != nil {
		return mapServiceError(c, err)
	}
	return successJSON(c, http.StatusOK, members)
}

// Kick handles DELETE /api/v1/servers/:id/members/:user_id.
func (h *MemberHandler) Kick(c echo.Context) error {
	serverID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid server id")
	}
	targetID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid user id")
	}

	if err := h.service.Kick(c.Request().Context(), serverID, auth.GetUserID(c), targetID); err != nil {
		return mapServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type updateNicknameRequest struct {
	Nickname *string `json:"nickname"`
}

// UpdateNickname handles PATCH /api/v1/servers/:id/members/:user_id.
func (h *MemberHandler) UpdateNickname(c echo.Context) error {
	serverID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid server id")
	}

	targetParam := c.Param("user_id")
	var targetID int64
	if targetParam == "@me" {
		targetID = auth.GetUserID(c)
	} else {
		targetID, err = strconv.ParseInt(targetParam, 10, 64)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid user id")
		}
	}

	var req updateNicknameRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	member, err := h.service.UpdateNickname(c.Request().Context(), serverID, auth.GetUserID(c), targetID, req.Nickname)
	if err != nil {
		return mapServiceError(c, err)
	}
	return successJSON(c, http.StatusOK, member)
}
