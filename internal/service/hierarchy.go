package service

import (
	"context"

	"github.com/victorivanov/parley/internal/database"
	"github.com/victorivanov/parley/internal/models"
)

// HierarchyGuard decides whether one member may administratively act on
// another member or on a role, by comparing role ranks. A member's rank is
// the highest position among their held roles, 0 with none. The server owner
// bypasses every comparison; ties always lose, so peers cannot act on each
// other.
type HierarchyGuard struct {
	servers database.ServerRepository
	members database.MemberRepository
	roles   database.RoleRepository
}

// NewHierarchyGuard creates a HierarchyGuard.
func NewHierarchyGuard(servers database.ServerRepository, members database.MemberRepository, roles database.RoleRepository) *HierarchyGuard {
	return &HierarchyGuard{servers: servers, members: members, roles: roles}
}

// CanManageMember checks that the actor outranks the target member.
func (h *HierarchyGuard) CanManageMember(ctx context.Context, serverID, actorID, targetID int64) error {
	server, err := h.servers.GetByID(ctx, serverID)
	if err != nil {
		return Internal("INTERNAL", "internal server error")
	}
	if server == nil {
		return NotFound("NOT_FOUND", "server not found")
	}
	if server.OwnerID == targetID {
		return Forbidden("FORBIDDEN", "the server owner cannot be managed")
	}
	if server.OwnerID == actorID {
		return nil
	}

	actor, err := h.members.GetByServerAndUser(ctx, serverID, actorID)
	if err != nil {
		return Internal("INTERNAL", "internal server error")
	}
	if actor == nil {
		return Forbidden("FORBIDDEN", "you are not a member of this server")
	}

	target, err := h.members.GetByServerAndUser(ctx, serverID, targetID)
	if err != nil {
		return Internal("INTERNAL", "internal server error")
	}
	if target == nil {
		return NotFound("NOT_FOUND", "member not found")
	}

	positions, err := h.rolePositions(ctx, serverID)
	if err != nil {
		return err
	}
	if rank(actor, positions) <= rank(target, positions) {
		return RoleHierarchyError("you cannot manage a member with an equal or higher role")
	}
	return nil
}

// CanManageRole checks that the actor outranks the target role.
func (h *HierarchyGuard) CanManageRole(ctx context.Context, serverID, actorID, roleID int64) error {
	role, err := h.roles.GetByID(ctx, roleID)
	if err != nil {
		return Internal("INTERNAL", "internal server error")
	}
	if role == nil || role.ServerID != serverID {
		return NotFound("NOT_FOUND", "role not found")
	}

	server, err := h.servers.GetByID(ctx, serverID)
	if err != nil {
		return Internal("INTERNAL", "internal server error")
	}
	if server == nil {
		return NotFound("NOT_FOUND", "server not found")
	}
	if server.OwnerID == actorID {
		return nil
	}

	actor, err := h.members.GetByServerAndUser(ctx, serverID, actorID)
	if err != nil {
		return Internal("INTERNAL", "internal server error")
	}
	if actor == nil {
		return Forbidden("FORBIDDEN", "you are not a member of this server")
	}

	positions, err := h.rolePositions(ctx, serverID)
	if err != nil {
		return err
	}
	if role.Position >= rank(actor, positions) {
		return RoleHierarchyError("you cannot manage a role at or above your highest role")
	}
	return nil
}

func (h *HierarchyGuard) rolePositions(ctx context.Context, serverID int64) (map[int64]int, error) {
	roles, err := h.roles.GetByServerID(ctx, serverID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	positions := make(map[int64]int, len(roles))
	for i := range roles {
		positions[roles[i].ID] = roles[i].Position
	}
	return positions, nil
}

func rank(member *models.Member, positions map[int64]int) int {
	highest := 0
	for _, roleID := range member.RoleIDs {
		if pos, ok := positions[roleID]; ok && pos > highest {
			highest = pos
		}
	}
	return highest
}
