package service

import (
	"context"
	"log/slog"

	"github.com/victorivanov/parley/internal/database"
	"github.com/victorivanov/parley/internal/gateway"
	"github.com/victorivanov/parley/internal/models"
	"github.com/victorivanov/parley/internal/permissions"
	"github.com/victorivanov/parley/internal/snowflake"
)

// RoleService handles role lifecycle and assignment. Every mutation that
// can change who sees what ends by queuing a broadcast-group resync for the
// affected users.
type RoleService struct {
	roles     database.RoleRepository
	members   database.MemberRepository
	snowflake *snowflake.Generator
	perms     *PermissionService
	hierarchy *HierarchyGuard
	broadcast Broadcaster
	rooms     RoomSync
}

// NewRoleService creates a RoleService.
func NewRoleService(
	roles database.RoleRepository,
	members database.MemberRepository,
	sf *snowflake.Generator,
	perms *PermissionService,
	hierarchy *HierarchyGuard,
	broadcast Broadcaster,
	rooms RoomSync,
) *RoleService {
	return &RoleService{
		roles:     roles,
		members:   members,
		snowflake: sf,
		perms:     perms,
		hierarchy: hierarchy,
		broadcast: broadcast,
		rooms:     rooms,
	}
}

// CreateRole creates a new role in a server.
func (s *RoleService) CreateRole(ctx context.Context, serverID, actorID int64, name string, color int, perms []string, position int) (*models.Role, error) {
	if name == "" || len(name) > 100 {
		return nil, BadRequest("INVALID_NAME", "name must be 1-100 characters")
	}

	if err := s.perms.RequireServer(ctx, serverID, actorID, permissions.ManageRoles); err != nil {
		return nil, err
	}

	role := &models.Role{
		ID:          s.snowflake.Generate().Int64(),
		ServerID:    serverID,
		Name:        name,
		Color:       color,
		Permissions: permissions.FromTokens(perms).Tokens(),
		Position:    position,
	}

	// The new role must sit below the actor's own rank; checking it through
	// the guard would race against the insert, so compare up front.
	if err := s.assertPositionBelowActor(ctx, serverID, actorID, position); err != nil {
		return nil, err
	}

	if err := s.roles.Create(ctx, role); err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}

	s.broadcast.Emit(gateway.ServerGroup(serverID), gateway.EventRoleCreate, role)
	return role, nil
}

// ListRoles returns all roles for a server.
func (s *RoleService) ListRoles(ctx context.Context, serverID, userID int64) ([]models.Role, error) {
	member, err := s.members.GetByServerAndUser(ctx, serverID, userID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if member == nil {
		return nil, Forbidden("FORBIDDEN", "you are not a member of this server")
	}

	roles, err := s.roles.GetByServerID(ctx, serverID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if roles == nil {
		roles = []models.Role{}
	}
	return roles, nil
}

// UpdateRole updates a role's name, color, permissions, or position.
func (s *RoleService) UpdateRole(ctx context.Context, serverID, actorID, roleID int64, name *string, color *int, perms *[]string, position *int) (*models.Role, error) {
	if err := s.perms.RequireServer(ctx, serverID, actorID, permissions.ManageRoles); err != nil {
		return nil, err
	}
	if err := s.hierarchy.CanManageRole(ctx, serverID, actorID, roleID); err != nil {
		return nil, err
	}

	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if role == nil {
		return nil, NotFound("NOT_FOUND", "role not found")
	}

	permissionsChanged := false
	if name != nil {
		if *name == "" || len(*name) > 100 {
			return nil, BadRequest("INVALID_NAME", "name must be 1-100 characters")
		}
		role.Name = *name
	}
	if color != nil {
		role.Color = *color
	}
	if perms != nil {
		role.Permissions = permissions.FromTokens(*perms).Tokens()
		permissionsChanged = true
	}
	if position != nil && *position != role.Position {
		if err := s.assertPositionBelowActor(ctx, serverID, actorID, *position); err != nil {
			return nil, err
		}
		role.Position = *position
		permissionsChanged = true
	}

	if err := s.roles.Update(ctx, role); err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}

	s.broadcast.Emit(gateway.ServerGroup(serverID), gateway.EventRoleUpdate, role)
	if permissionsChanged {
		s.resyncRoleHolders(ctx, serverID, roleID, role.IsBase)
	}
	return role, nil
}

// DeleteRole deletes a role. The repository cascades it out of member role
// lists and channel overrides; former holders are then resynced.
func (s *RoleService) DeleteRole(ctx context.Context, serverID, actorID, roleID int64) error {
	if err := s.perms.RequireServer(ctx, serverID, actorID, permissions.ManageRoles); err != nil {
		return err
	}
	if err := s.hierarchy.CanManageRole(ctx, serverID, actorID, roleID); err != nil {
		return err
	}

	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return Internal("INTERNAL", "internal server error")
	}
	if role == nil {
		return NotFound("NOT_FOUND", "role not found")
	}
	if role.IsBase {
		return Forbidden("CANNOT_DELETE", "the base role cannot be deleted")
	}

	// Capture holders before the cascade wipes the assignment rows.
	holders, err := s.members.ListUserIDsByRole(ctx, serverID, roleID)
	if err != nil {
		return Internal("INTERNAL", "internal server error")
	}

	if err := s.roles.Delete(ctx, roleID); err != nil {
		return Internal("INTERNAL", "internal server error")
	}

	s.broadcast.Emit(gateway.ServerGroup(serverID), gateway.EventRoleDelete, map[string]any{
		"server_id": serverID,
		"role_id":   roleID,
	})
	s.rooms.OnAffectedUsers(holders)
	return nil
}

// AssignRole grants a role to a member.
func (s *RoleService) AssignRole(ctx context.Context, serverID, actorID, userID, roleID int64) error {
	if err := s.perms.RequireServer(ctx, serverID, actorID, permissions.ManageRoles); err != nil {
		return err
	}
	if err := s.hierarchy.CanManageRole(ctx, serverID, actorID, roleID); err != nil {
		return err
	}

	member, err := s.members.GetByServerAndUser(ctx, serverID, userID)
	if err != nil {
		return Internal("INTERNAL", "internal server error")
	}
	if member == nil {
		return NotFound("NOT_FOUND", "member not found")
	}

	if err := s.members.AddRole(ctx, serverID, userID, roleID); err != nil {
		return Internal("INTERNAL", "internal server error")
	}

	s.broadcast.Emit(gateway.ServerGroup(serverID), gateway.EventMemberUpdate, map[string]any{
		"server_id": serverID,
		"user_id":   userID,
	})
	s.rooms.OnAffectedUsers([]int64{userID})
	return nil
}

// RevokeRole removes a role from a member.
func (s *RoleService) RevokeRole(ctx context.Context, serverID, actorID, userID, roleID int64) error {
	if err := s.perms.RequireServer(ctx, serverID, actorID, permissions.ManageRoles); err != nil {
		return err
	}
	if err := s.hierarchy.CanManageRole(ctx, serverID, actorID, roleID); err != nil {
		return err
	}

	if err := s.members.RemoveRole(ctx, serverID, userID, roleID); err != nil {
		return Internal("INTERNAL", "internal server error")
	}

	s.broadcast.Emit(gateway.ServerGroup(serverID), gateway.EventMemberUpdate, map[string]any{
		"server_id": serverID,
		"user_id":   userID,
	})
	s.rooms.OnAffectedUsers([]int64{userID})
	return nil
}

// assertPositionBelowActor rejects placing a role at or above the actor's
// own rank. Owners place roles anywhere.
func (s *RoleService) assertPositionBelowActor(ctx context.Context, serverID, actorID int64, position int) error {
	exempt, err := s.perms.IsExempt(ctx, serverID, actorID)
	if err != nil {
		return err
	}
	if exempt {
		return nil
	}

	actor, err := s.members.GetByServerAndUser(ctx, serverID, actorID)
	if err != nil {
		return Internal("INTERNAL", "internal server error")
	}
	if actor == nil {
		return Forbidden("FORBIDDEN", "you are not a member of this server")
	}

	roles, err := s.roles.GetByServerID(ctx, serverID)
	if err != nil {
		return Internal("INTERNAL", "internal server error")
	}
	positions := make(map[int64]int, len(roles))
	for i := range roles {
		positions[roles[i].ID] = roles[i].Position
	}
	if position >= rank(actor, positions) {
		return RoleHierarchyError("cannot place a role at or above your highest role")
	}
	return nil
}

// resyncRoleHolders queues a resync for everyone affected by a permission
// change on a role. Base-role changes affect every member.
func (s *RoleService) resyncRoleHolders(ctx context.Context, serverID, roleID int64, isBase bool) {
	if isBase {
		go func() {
			rctx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
			defer cancel()
			if err := s.rooms.RefreshServerMembers(rctx, serverID); err != nil {
				slog.Error("server resync failed", "serverID", serverID, "error", err)
			}
		}()
		return
	}

	holders, err := s.members.ListUserIDsByRole(ctx, serverID, roleID)
	if err != nil {
		slog.Error("listing role holders failed", "serverID", serverID, "roleID", roleID, "error", err)
		return
	}
	s.rooms.OnAffectedUsers(holders)
}
