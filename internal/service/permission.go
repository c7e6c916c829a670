package service

import (
	"context"

	"github.com/victorivanov/parley/internal/database"
	"github.com/victorivanov/parley/internal/models"
	"github.com/victorivanov/parley/internal/permissions"
)

// PermissionService loads the authorization snapshot for a server and runs
// the permission engine over it. All channel- and server-level access checks
// in the service layer go through here.
type PermissionService struct {
	servers  database.ServerRepository
	members  database.MemberRepository
	roles    database.RoleRepository
	channels database.ChannelRepository
}

// NewPermissionService creates a PermissionService.
func NewPermissionService(
	servers database.ServerRepository,
	members database.MemberRepository,
	roles database.RoleRepository,
	channels database.ChannelRepository,
) *PermissionService {
	return &PermissionService{
		servers:  servers,
		members:  members,
		roles:    roles,
		channels: channels,
	}
}

// EffectiveForChannel computes the effective permission set a user holds in
// a channel. For DM channels recipient membership is the whole check; for
// server channels the engine runs over the server's current role snapshot.
func (p *PermissionService) EffectiveForChannel(ctx context.Context, userID int64, channel *models.Channel) (permissions.Set, error) {
	if channel.IsDM() {
		if !channel.HasRecipient(userID) {
			return nil, Forbidden("FORBIDDEN", "you are not a recipient of this channel")
		}
		return permissions.DMSet(), nil
	}

	serverID := *channel.ServerID
	member, err := p.members.GetByServerAndUser(ctx, serverID, userID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if member == nil {
		return nil, Forbidden("FORBIDDEN", "you are not a member of this server")
	}

	allRoles, baseRole, err := p.serverRoles(ctx, serverID)
	if err != nil {
		return nil, err
	}

	return permissions.ComputeEffective(member, allRoles, baseRole, channel), nil
}

// RequireChannel loads a channel and checks that the user holds the given
// permission in it. The loaded channel is returned for reuse by the caller.
func (p *PermissionService) RequireChannel(ctx context.Context, userID, channelID int64, perm permissions.Permission) (*models.Channel, error) {
	channel, err := p.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if channel == nil {
		return nil, NotFound("NOT_FOUND", "channel not found")
	}

	effective, err := p.EffectiveForChannel(ctx, userID, channel)
	if err != nil {
		return nil, err
	}
	if !effective.Has(perm) {
		return nil, Forbidden("MISSING_PERMISSIONS", "you do not have the required permissions")
	}
	return channel, nil
}

// RequireServer checks that the user holds the given permission server-wide,
// before channel overrides. Owners and administrators always pass.
func (p *PermissionService) RequireServer(ctx context.Context, serverID, userID int64, perm permissions.Permission) error {
	set, isOwner, err := p.serverPermissions(ctx, serverID, userID)
	if err != nil {
		return err
	}
	if isOwner || set.Has(permissions.Administrator) || set.Has(perm) {
		return nil
	}
	return Forbidden("MISSING_PERMISSIONS", "you do not have the required permissions")
}

// IsExempt reports whether the user bypasses self-lockout protection in the
// server: the owner, or anyone whose role union carries ADMINISTRATOR.
func (p *PermissionService) IsExempt(ctx context.Context, serverID, userID int64) (bool, error) {
	set, isOwner, err := p.serverPermissions(ctx, serverID, userID)
	if err != nil {
		return false, err
	}
	return isOwner || set.Has(permissions.Administrator), nil
}

// serverPermissions returns the user's server-wide permission union (base
// role plus held roles) and whether they own the server.
func (p *PermissionService) serverPermissions(ctx context.Context, serverID, userID int64) (permissions.Set, bool, error) {
	server, err := p.servers.GetByID(ctx, serverID)
	if err != nil {
		return nil, false, Internal("INTERNAL", "internal server error")
	}
	if server == nil {
		return nil, false, NotFound("NOT_FOUND", "server not found")
	}
	if server.OwnerID == userID {
		return permissions.All(), true, nil
	}

	member, err := p.members.GetByServerAndUser(ctx, serverID, userID)
	if err != nil {
		return nil, false, Internal("INTERNAL", "internal server error")
	}
	if member == nil {
		return nil, false, Forbidden("FORBIDDEN", "you are not a member of this server")
	}

	allRoles, baseRole, err := p.serverRoles(ctx, serverID)
	if err != nil {
		return nil, false, err
	}

	set := permissions.FromTokens(baseRole.Permissions)
	held := make(map[int64]struct{}, len(member.RoleIDs))
	for _, id := range member.RoleIDs {
		held[id] = struct{}{}
	}
	for i := range allRoles {
		if _, ok := held[allRoles[i].ID]; ok {
			set.AddTokens(allRoles[i].Permissions)
		}
	}
	return set, false, nil
}

func (p *PermissionService) serverRoles(ctx context.Context, serverID int64) ([]models.Role, *models.Role, error) {
	allRoles, err := p.roles.GetByServerID(ctx, serverID)
	if err != nil {
		return nil, nil, Internal("INTERNAL", "internal server error")
	}
	var baseRole *models.Role
	for i := range allRoles {
		if allRoles[i].IsBase {
			baseRole = &allRoles[i]
			break
		}
	}
	if baseRole == nil {
		return nil, nil, Internal("NO_BASE_ROLE", "server has no base role")
	}
	return allRoles, baseRole, nil
}
