package service

import "context"

// Broadcaster is the slice of the gateway the services use to push events.
type Broadcaster interface {
	Emit(group, event string, payload any)
}

// RoomSync triggers broadcast-group reconciliation after authorization
// state changes. Implemented by the gateway's room synchronizer.
type RoomSync interface {
	OnAffectedUsers(userIDs []int64)
	RefreshServerMembers(ctx context.Context, serverID int64) error
}
