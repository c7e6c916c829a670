package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/victorivanov/parley/internal/auth"
	"github.com/victorivanov/parley/internal/service"
)

// RoleHandler handles role CRUD and role membership endpoints.
type RoleHandler struct {
	service *service.RoleService
}

// NewRoleHandler creates a RoleHandler.
func NewRoleHandler(svc *service.RoleService) *RoleHandler {
	return &RoleHandler{service: svc}
}

type createRoleRequest struct {
	Name        string   `json:"name"`
	Color       int      `json:"color"`
	Permissions []string `json:"permissions"`
	Position    int      `json:"position"`
}

// CreateRole handles POST /api/v1/servers/:id/roles.
func (h *RoleHandler) CreateRole(c echo.Context) error {
	serverID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid server id")
	}

	var req createRoleRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	role, err := h.service.CreateRole(c.Request().Context(), serverID, auth.GetUserID(c), req.Name, req.Color, req.Permissions, req.Position)
	if err != nil {
		return mapServiceError(c, err)
	}
	return successJSON(c, http.StatusCreated, role)
}

// ListRoles handles GET /api/v1/servers/:id/roles.
func (h *RoleHandler) ListRoles(c echo.Context) error {
	serverID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid server id")
	}

	roles, err := h.service.ListRoles(c.Request().Context(), serverID, auth.GetUserID(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return successJSON(c, http.StatusOK, roles)
}

type updateRoleRequest struct {
	Name        *string   `json:"name,omitempty"`
	Color       *int      `json:"color,omitempty"`
	Permissions *[]string `json:"permissions,omitempty"`
	Position    *int      `json:"position,omitempty"`
}

// UpdateRole handles PATCH /api/v1/servers/:id/roles/:role_id.
func (h *RoleHandler) UpdateRole(c echo.Context) error {
	serverID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid server id")
	}
	roleID, err := strconv.ParseInt(c.Param("role_id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid role id")
	}

	var req updateRoleRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	role, err := h.service.UpdateRole(c.Request().Context(), serverID, auth.GetUserID(c), roleID, req.Name, req.Color, req.Permissions, req.Position)
	if err != nil {
		return mapServiceError(c, err)
	}
	return successJSON(c, http.StatusOK, role)
}

// DeleteRole handles DELETE /api/v1/servers/:id/roles/:role_id.
func (h *RoleHandler) DeleteRole(c echo.Context) error {
	serverID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid server id")
	}
	roleID, err := strconv.ParseInt(c.Param("role_id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid role id")
	}

	if err := h.service.DeleteRole(c.Request().Context(), serverID, auth.GetUserID(c), roleID); err != nil {
		return mapServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AssignRole handles PUT /api/v1/servers/:id/members/:user_id/roles/:role_id.
func (h *RoleHandler) AssignRole(c echo.Context) error {
	serverID, userID, roleID, err := roleMembershipParams(c)
	if err != nil {
		return err
	}

	if err := h.service.AssignRole(c.Request().Context(), serverID, auth.GetUserID(c), userID, roleID); err != nil {
		return mapServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RevokeRole handles DELETE /api/v1/servers/:id/members/:user_id/roles/:role_id.
func (h *RoleHandler) RevokeRole(c echo.Context) error {
	serverID, userID, roleID, err := roleMembershipParams(c)
	if err != nil {
		return err
	}

	if err := h.service.RevokeRole(c.Request().Context(), serverID, auth.GetUserID(c), userID, roleID); err != nil {
		return mapServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func roleMembershipParams(c echo.Context) (serverID, userID, roleID int64, err error) {
	serverID, err = strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, 0, 0, errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid server id")
	}
	userID, err = strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		return 0, 0, 0, errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid user id")
	}
	roleID, err = strconv.ParseInt(c.Param("role_id"), 10, 64)
	if err != nil {
		return 0, 0, 0, errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid role id")
	}
	return serverID, userID, roleID, nil
}
