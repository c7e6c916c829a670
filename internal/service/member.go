package service

import (
	"context"

	"github.com/victorivanov/parley/internal/database"
	"github.com/victorivanov/parley/internal/gateway"
	"github.com/victorivanov/parley/internal/models"
	"github.com/victorivanov/parley/internal/permissions"
)

// MemberService handles server membership: join, leave, kick, nicknames.
type MemberService struct {
	servers   database.ServerRepository
	members   database.MemberRepository
	perms     *PermissionService
	hierarchy *HierarchyGuard
	broadcast Broadcaster
	rooms     RoomSync
}

// NewMemberService creates a MemberService.
func NewMemberService(
	servers database.ServerRepository,
	members database.MemberRepository,
	perms *PermissionService,
	hierarchy *HierarchyGuard,
	broadcast Broadcaster,
	rooms RoomSync,
) *MemberService {
	return &MemberService{
		servers:   servers,
		members:   members,
		perms:     perms,
		hierarchy: hierarchy,
		broadcast: broadcast,
		rooms:     rooms,
	}
}

// Join adds a user to a server with no explicit roles; the base role covers
// them implicitly.
func (s *MemberService) Join(ctx context.Context, serverID, userID int64) (*models.Member, error) {
	server, err := s.servers.GetByID(ctx, serverID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if server == nil {
		return nil, NotFound("NOT_FOUND", "server not found")
	}

	existing, err := s.members.GetByServerAndUser(ctx, serverID, userID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if existing != nil {
		return nil, Conflict("ALREADY_MEMBER", "you are already a member of this server")
	}

	member := &models.Member{ServerID: serverID, UserID: userID}
	if err := s.members.Create(ctx, member); err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}

	s.broadcast.Emit(gateway.ServerGroup(serverID), gateway.EventMemberJoin, member)
	s.rooms.OnAffectedUsers([]int64{userID})
	return member, nil
}

// Leave removes the user's own membership. The owner cannot leave; they
// delete the server instead.
func (s *MemberService) Leave(ctx context.Context, serverID, userID int64) error {
	server, err := s.servers.GetByID(ctx, serverID)
	if err != nil {
		return Internal("INTERNAL", "internal server error")
	}
	if server == nil {
		return NotFound("NOT_FOUND", "server not found")
	}
	if server.OwnerID == userID {
		return Forbidden("OWNER_CANNOT_LEAVE", "the owner cannot leave their own server")
	}

	member, err := s.members.GetByServerAndUser(ctx, serverID, userID)
	if err != nil {
		return Internal("INTERNAL", "internal server error")
	}
	if member == nil {
		return NotFound("NOT_FOUND", "you are not a member of this server")
	}

	if err := s.members.Delete(ctx, serverID, userID); err != nil {
		return Internal("INTERNAL", "internal server error")
	}

	s.broadcast.Emit(gateway.ServerGroup(serverID), gateway.EventMemberLeave, map[string]any{
		"server_id": serverID,
		"user_id":   userID,
	})
	s.rooms.OnAffectedUsers([]int64{userID})
	return nil
}

// Kick removes another member. The actor needs KICK_MEMBERS and must
// outrank the target.
func (s *MemberService) Kick(ctx context.Context, serverID, actorID, targetID int64) error {
	if actorID == targetID {
		return BadRequest("INVALID_TARGET", "use leave to remove yourself")
	}

	if err := s.perms.RequireServer(ctx, serverID, actorID, permissions.KickMembers); err != nil {
		return err
	}
	if err := s.hierarchy.CanManageMember(ctx, serverID, actorID, targetID); err != nil {
		return err
	}

	if err := s.members.Delete(ctx, serverID, targetID); err != nil {
		return Internal("INTERNAL", "internal server error")
	}

	s.broadcast.Emit(gateway.ServerGroup(serverID), gateway.EventMemberLeave, map[string]any{
		"server_id": serverID,
		"user_id":   targetID,
	})
	s.rooms.OnAffectedUsers([]int64{targetID})
	return nil
}

// List pages through a server's members.
func (s *MemberService) List(ctx context.Context, serverID, userID int64, limit, offset int) ([]models.Member, error) {
	member, err := s.members.GetByServerAndUser(ctx, serverID, userID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if member == nil {
		return nil, Forbidden("FORBIDDEN", "you are not a member of this server")
	}

	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	members, err := s.members.ListByServer(ctx, serverID, limit, offset)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if members == nil {
		members = []models.Member{}
	}
	return members, nil
}

// UpdateNickname sets or clears a member's nickname. Members change their
// own; changing someone else's requires MANAGE_SERVER and higher rank.
func (s *MemberService) UpdateNickname(ctx context.Context, serverID, actorID, targetID int64, nickname *string) (*models.Member, error) {
	if actorID != targetID {
		if err := s.perms.RequireServer(ctx, serverID, actorID, permissions.ManageServer); err != nil {
			return nil, err
		}
		if err := s.hierarchy.CanManageMember(ctx, serverID, actorID, targetID); err != nil {
			return nil, err
		}
	}

	member, err := s.members.GetByServerAndUser(ctx, serverID, targetID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if member == nil {
		return nil, NotFound("NOT_FOUND", "member not found")
	}

	member.Nickname = nickname
	if err := s.members.Update(ctx, member); err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}

	s.broadcast.Emit(gateway.ServerGroup(serverID), gateway.EventMemberUpdate, member)
	return member, nil
}
