package service

import (
	"context"

	"github.com/victorivanov/parley/internal/database"
	"github.com/victorivanov/parley/internal/gateway"
	"github.com/victorivanov/parley/internal/models"
	"github.com/victorivanov/parley/internal/permissions"
	"github.com/victorivanov/parley/internal/snowflake"
)

// ServerService handles server lifecycle. Creating a server provisions the
// base role and the owner's membership in the same stroke so a fresh server
// always satisfies the one-base-role invariant.
type ServerService struct {
	servers   database.ServerRepository
	roles     database.RoleRepository
	members   database.MemberRepository
	channels  database.ChannelRepository
	snowflake *snowflake.Generator
	broadcast Broadcaster
	rooms     RoomSync
}

// NewServerService creates a ServerService.
func NewServerService(
	servers database.ServerRepository,
	roles database.RoleRepository,
	members database.MemberRepository,
	channels database.ChannelRepository,
	sf *snowflake.Generator,
	broadcast Broadcaster,
	rooms RoomSync,
) *ServerService {
	return &ServerService{
		servers:   servers,
		roles:     roles,
		members:   members,
		channels:  channels,
		snowflake: sf,
		broadcast: broadcast,
		rooms:     rooms,
	}
}

// Create provisions a server: the server row, its base role, the owner's
// membership, and a default text channel.
func (s *ServerService) Create(ctx context.Context, ownerID int64, name string) (*models.Server, error) {
	if name == "" || len(name) > 100 {
		return nil, BadRequest("INVALID_NAME", "name must be 1-100 characters")
	}

	server := &models.Server{
		ID:      s.snowflake.Generate().Int64(),
		Name:    name,
		OwnerID: ownerID,
	}
	if err := s.servers.Create(ctx, server); err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}

	baseRole := &models.Role{
		ID:          s.snowflake.Generate().Int64(),
		ServerID:    server.ID,
		Name:        "@everyone",
		Permissions: permissions.DefaultBase,
		IsBase:      true,
	}
	if err := s.roles.Create(ctx, baseRole); err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if err := s.servers.SetBaseRole(ctx, server.ID, baseRole.ID); err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	server.BaseRoleID = baseRole.ID

	owner := &models.Member{ServerID: server.ID, UserID: ownerID, IsOwner: true}
	if err := s.members.Create(ctx, owner); err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}

	general := &models.Channel{
		ID:       s.snowflake.Generate().Int64(),
		ServerID: &server.ID,
		Kind:     models.ChannelKindText,
		Name:     "general",
	}
	if err := s.channels.Create(ctx, general); err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}

	s.broadcast.Emit(gateway.UserGroup(ownerID), gateway.EventServerCreate, server)
	s.rooms.OnAffectedUsers([]int64{ownerID})
	return server, nil
}

// Get returns a server the user is a member of.
func (s *ServerService) Get(ctx context.Context, serverID, userID int64) (*models.Server, error) {
	server, err := s.servers.GetByID(ctx, serverID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if server == nil {
		return nil, NotFound("NOT_FOUND", "server not found")
	}

	member, err := s.members.GetByServerAndUser(ctx, serverID, userID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if member == nil {
		return nil, Forbidden("FORBIDDEN", "you are not a member of this server")
	}
	return server, nil
}

// ListForUser returns every server the user belongs to.
func (s *ServerService) ListForUser(ctx context.Context, userID int64) ([]models.Server, error) {
	servers, err := s.servers.GetByUserID(ctx, userID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if servers == nil {
		servers = []models.Server{}
	}
	return servers, nil
}

// Delete removes a server. Owner only. Member user IDs are collected first
// so their connections can be resynced after the rows are gone.
func (s *ServerService) Delete(ctx context.Context, serverID, actorID int64) error {
	server, err := s.servers.GetByID(ctx, serverID)
	if err != nil {
		return Internal("INTERNAL", "internal server error")
	}
	if server == nil {
		return NotFound("NOT_FOUND", "server not found")
	}
	if server.OwnerID != actorID {
		return Forbidden("NOT_OWNER", "only the owner can delete a server")
	}

	var userIDs []int64
	for offset := 0; ; offset += 200 {
		page, err := s.members.ListByServer(ctx, serverID, 200, offset)
		if err != nil {
			return Internal("INTERNAL", "internal server error")
		}
		for _, m := range page {
			userIDs = append(userIDs, m.UserID)
		}
		if len(page) < 200 {
			break
		}
	}

	if err := s.servers.Delete(ctx, serverID); err != nil {
		return Internal("INTERNAL", "internal server error")
	}

	s.broadcast.Emit(gateway.ServerGroup(serverID), gateway.EventServerDelete, map[string]any{
		"server_id": serverID,
	})
	s.rooms.OnAffectedUsers(userIDs)
	return nil
}
