package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/victorivanov/parley/internal/database"
	"github.com/victorivanov/parley/internal/gateway"
	"github.com/victorivanov/parley/internal/models"
	"github.com/victorivanov/parley/internal/permissions"
	"github.com/victorivanov/parley/internal/snowflake"
)

const resyncTimeout = 30 * time.Second

// ChannelService handles channel lifecycle, DM channels, and channel
// permission overrides.
type ChannelService struct {
	channels  database.ChannelRepository
	members   database.MemberRepository
	roles     database.RoleRepository
	snowflake *snowflake.Generator
	perms     *PermissionService
	broadcast Broadcaster
	rooms     RoomSync
}

// NewChannelService creates a ChannelService.
func NewChannelService(
	channels database.ChannelRepository,
	members database.MemberRepository,
	roles database.RoleRepository,
	sf *snowflake.Generator,
	perms *PermissionService,
	broadcast Broadcaster,
	rooms RoomSync,
) *ChannelService {
	return &ChannelService{
		channels:  channels,
		members:   members,
		roles:     roles,
		snowflake: sf,
		perms:     perms,
		broadcast: broadcast,
		rooms:     rooms,
	}
}

// CreateChannel creates a text or web channel in a server.
func (s *ChannelService) CreateChannel(ctx context.Context, serverID, actorID int64, kind models.ChannelKind, name string, topic *string, categoryID *int64) (*models.Channel, error) {
	if name == "" || len(name) > 100 {
		return nil, BadRequest("INVALID_NAME", "name must be 1-100 characters")
	}
	if kind != models.ChannelKindText && kind != models.ChannelKindWeb {
		return nil, BadRequest("INVALID_KIND", "channel kind must be TEXT or WEB")
	}

	if err := s.perms.RequireServer(ctx, serverID, actorID, permissions.ManageChannels); err != nil {
		return nil, err
	}

	channel := &models.Channel{
		ID:         s.snowflake.Generate().Int64(),
		ServerID:   &serverID,
		Kind:       kind,
		Name:       name,
		Topic:      topic,
		CategoryID: categoryID,
	}
	if err := s.channels.Create(ctx, channel); err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}

	s.broadcast.Emit(gateway.ServerGroup(serverID), gateway.EventChannelCreate, channel)
	s.resyncServer(serverID)
	return channel, nil
}

// GetChannel returns a channel the user can view.
func (s *ChannelService) GetChannel(ctx context.Context, channelID, userID int64) (*models.Channel, error) {
	return s.perms.RequireChannel(ctx, userID, channelID, permissions.ViewChannel)
}

// ListChannels returns the server's channels the user can view.
func (s *ChannelService) ListChannels(ctx context.Context, serverID, userID int64) ([]models.Channel, error) {
	member, err := s.members.GetByServerAndUser(ctx, serverID, userID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if member == nil {
		return nil, Forbidden("FORBIDDEN", "you are not a member of this server")
	}

	channels, err := s.channels.ListByServer(ctx, serverID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}

	visible := make([]models.Channel, 0, len(channels))
	for i := range channels {
		effective, err := s.perms.EffectiveForChannel(ctx, userID, &channels[i])
		if err != nil {
			continue
		}
		if effective.Has(permissions.ViewChannel) {
			visible = append(visible, channels[i])
		}
	}
	return visible, nil
}

// UpdateChannel updates a channel's name, topic, or position.
func (s *ChannelService) UpdateChannel(ctx context.Context, channelID, actorID int64, name *string, topic *string, position *int) (*models.Channel, error) {
	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if channel == nil {
		return nil, NotFound("NOT_FOUND", "channel not found")
	}
	if channel.IsDM() {
		return nil, BadRequest("DM_CHANNEL", "DM channels cannot be edited")
	}

	if err := s.perms.RequireServer(ctx, *channel.ServerID, actorID, permissions.ManageChannels); err != nil {
		return nil, err
	}

	if name != nil {
		if *name == "" || len(*name) > 100 {
			return nil, BadRequest("INVALID_NAME", "name must be 1-100 characters")
		}
		channel.Name = *name
	}
	if topic != nil {
		channel.Topic = topic
	}
	if position != nil {
		channel.Position = *position
	}

	if err := s.channels.Update(ctx, channel); err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}

	s.broadcast.Emit(gateway.ChannelGroup(channelID), gateway.EventChannelUpdate, channel)
	return channel, nil
}

// DeleteChannel deletes a server channel.
func (s *ChannelService) DeleteChannel(ctx context.Context, channelID, actorID int64) error {
	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return Internal("INTERNAL", "internal server error")
	}
	if channel == nil {
		return NotFound("NOT_FOUND", "channel not found")
	}
	if channel.IsDM() {
		return BadRequest("DM_CHANNEL", "DM channels cannot be deleted")
	}
	serverID := *channel.ServerID

	if err := s.perms.RequireServer(ctx, serverID, actorID, permissions.ManageChannels); err != nil {
		return err
	}

	if err := s.channels.Delete(ctx, channelID); err != nil {
		return Internal("INTERNAL", "internal server error")
	}

	s.broadcast.Emit(gateway.ServerGroup(serverID), gateway.EventChannelDelete, map[string]any{
		"id":        fmt.Sprintf("%d", channelID),
		"server_id": fmt.Sprintf("%d", serverID),
	})
	s.resyncServer(serverID)
	return nil
}

// ApplyOverrides replaces a channel's whole override list.
//
// The write is guarded three ways: the override list must be well-formed
// (known target types, at most one entry per target), the actor must hold
// MANAGE_ROLES in the server, and a non-exempt actor must not lock
// themselves out — the proposed list is simulated against a hypothetical
// channel snapshot and rejected if the actor would lose VIEW_CHANNEL.
// Owners and administrators skip the simulation.
//
// On success every member of the server is queued for a broadcast-group
// resync; that fan-out is fire-and-forget and only ever logs.
func (s *ChannelService) ApplyOverrides(ctx context.Context, channelID, actorID int64, overrides []models.Override) (*models.Channel, error) {
	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if channel == nil {
		return nil, NotFound("NOT_FOUND", "channel not found")
	}
	if channel.IsDM() {
		return nil, BadRequest("DM_CHANNEL", "DM channels do not support permission overrides")
	}
	serverID := *channel.ServerID

	normalized, err := normalizeOverrides(channelID, overrides)
	if err != nil {
		return nil, err
	}

	if err := s.perms.RequireServer(ctx, serverID, actorID, permissions.ManageRoles); err != nil {
		return nil, err
	}

	exempt, err := s.perms.IsExempt(ctx, serverID, actorID)
	if err != nil {
		return nil, err
	}
	if !exempt {
		hypothetical := *channel
		hypothetical.Overrides = normalized
		effective, err := s.perms.EffectiveForChannel(ctx, actorID, &hypothetical)
		if err != nil {
			return nil, err
		}
		if !effective.Has(permissions.ViewChannel) {
			return nil, Forbidden("SELF_LOCKOUT", "this change would remove your own access to the channel")
		}
	}

	if err := s.channels.ReplaceOverrides(ctx, channelID, normalized); err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	channel.Overrides = normalized

	s.broadcast.Emit(gateway.ServerGroup(serverID), gateway.EventPermissionsUpdate, gateway.PermissionsUpdateData{
		ServerID:  serverID,
		ChannelID: &channelID,
	})
	s.resyncServer(serverID)
	return channel, nil
}

// GetOrCreateDM returns the DM channel between two users, creating it on
// first use. Both users' connections are resynced so they join its group.
func (s *ChannelService) GetOrCreateDM(ctx context.Context, userID, recipientID int64) (*models.Channel, error) {
	if userID == recipientID {
		return nil, BadRequest("INVALID_RECIPIENT", "cannot open a DM with yourself")
	}

	channel, err := s.channels.GetOrCreateDM(ctx, userID, recipientID, s.snowflake.Generate().Int64())
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}

	s.broadcast.Emit(gateway.UserGroup(userID), gateway.EventDMChannelCreate, channel)
	s.broadcast.Emit(gateway.UserGroup(recipientID), gateway.EventDMChannelCreate, channel)
	s.rooms.OnAffectedUsers([]int64{userID, recipientID})
	return channel, nil
}

// ListDMs returns the user's DM channels.
func (s *ChannelService) ListDMs(ctx context.Context, userID int64) ([]models.Channel, error) {
	channels, err := s.channels.ListDMsForUser(ctx, userID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if channels == nil {
		channels = []models.Channel{}
	}
	return channels, nil
}

// CreateCategory creates a channel category in a server.
func (s *ChannelService) CreateCategory(ctx context.Context, serverID, actorID int64, name string, position int) (*models.Category, error) {
	if name == "" || len(name) > 100 {
		return nil, BadRequest("INVALID_NAME", "name must be 1-100 characters")
	}
	if err := s.perms.RequireServer(ctx, serverID, actorID, permissions.ManageChannels); err != nil {
		return nil, err
	}

	category := &models.Category{
		ID:       s.snowflake.Generate().Int64(),
		ServerID: serverID,
		Name:     name,
		Position: position,
	}
	if err := s.channels.CreateCategory(ctx, category); err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	return category, nil
}

// ListCategories returns the server's channel categories.
func (s *ChannelService) ListCategories(ctx context.Context, serverID, userID int64) ([]models.Category, error) {
	member, err := s.members.GetByServerAndUser(ctx, serverID, userID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if member == nil {
		return nil, Forbidden("FORBIDDEN", "you are not a member of this server")
	}

	categories, err := s.channels.ListCategories(ctx, serverID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	return categories, nil
}

// normalizeOverrides validates the proposed override list and canonicalizes
// its permission sets. Unknown tokens are dropped like everywhere else;
// shape violations are rejected.
func normalizeOverrides(channelID int64, overrides []models.Override) ([]models.Override, error) {
	type target struct {
		kind models.OverrideTarget
		id   int64
	}
	seen := make(map[target]struct{}, len(overrides))

	out := make([]models.Override, 0, len(overrides))
	for _, o := range overrides {
		if o.TargetType != models.OverrideTargetRole && o.TargetType != models.OverrideTargetMember {
			return nil, BadRequest("INVALID_OVERRIDE", "unknown override target type")
		}
		key := target{kind: o.TargetType, id: o.TargetID}
		if _, dup := seen[key]; dup {
			return nil, BadRequest("DUPLICATE_OVERRIDE", "duplicate override target")
		}
		seen[key] = struct{}{}

		out = append(out, models.Override{
			ChannelID:  channelID,
			TargetType: o.TargetType,
			TargetID:   o.TargetID,
			Allow:      permissions.FromTokens(o.Allow).Tokens(),
			Deny:       permissions.FromTokens(o.Deny).Tokens(),
		})
	}
	return out, nil
}

// resyncServer queues a broadcast-group resync for every member of the
// server in the background. Failures are logged, never surfaced.
func (s *ChannelService) resyncServer(serverID int64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
		defer cancel()
		if err := s.rooms.RefreshServerMembers(ctx, serverID); err != nil {
			slog.Error("server resync failed", "serverID", serverID, "error", err)
		}
	}()
}
