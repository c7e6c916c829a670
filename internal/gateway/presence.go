package gateway

import (
	"context"
	"time"

	"github.com/victorivanov/parley/internal/database"
	"github.com/victorivanov/parley/internal/redis"
)

// Presence statuses. Offline is never stored; it is the absence of a key.
const (
	PresenceOnline  = "online"
	PresenceIdle    = "idle"
	PresenceDND     = "dnd"
	PresenceOffline = "offline"
)

func parsePresenceStatus(s string) (string, bool) {
	switch s {
	case PresenceOnline, PresenceIdle, PresenceDND, PresenceOffline:
		return s, true
	}
	return "", false
}

// PresenceService stores user presence in Redis and resolves which servers
// need to hear about a change.
type PresenceService struct {
	redis   *redis.Client
	members database.MemberRepository
}

func NewPresenceService(redisClient *redis.Client, members database.MemberRepository) *PresenceService {
	return &PresenceService{redis: redisClient, members: members}
}

// GetStatus returns the current status for a user, or offline if none is set.
func (ps *PresenceService) GetStatus(userID int64) string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	status, err := ps.redis.GetPresence(ctx, userID)
	if err != nil || status == "" {
		return PresenceOffline
	}
	return status
}

// SetOnline marks a user as online and returns the servers to notify.
func (ps *PresenceService) SetOnline(ctx context.Context, userID int64) ([]int64, error) {
	return ps.SetStatus(ctx, userID, PresenceOnline)
}

// SetStatus stores an explicit status and returns the servers to notify.
func (ps *PresenceService) SetStatus(ctx context.Context, userID int64, status string) ([]int64, error) {
	if err := ps.redis.SetPresence(ctx, userID, status); err != nil {
		return nil, err
	}
	return ps.members.ListServerIDsByUser(ctx, userID)
}

// SetOffline clears a user's presence and returns the servers to notify.
func (ps *PresenceService) SetOffline(ctx context.Context, userID int64) ([]int64, error) {
	if err := ps.redis.DeletePresence(ctx, userID); err != nil {
		return nil, err
	}
	return ps.members.ListServerIDsByUser(ctx, userID)
}
