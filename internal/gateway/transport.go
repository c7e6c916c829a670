package gateway

import "strconv"

// Transport is the broadcast fan-out capability the room synchronizer and
// the service layer drive. The concrete Manager implements it; tests use a
// fake. Join/Leave/Emit are best-effort: a connection that has gone away is
// simply not there anymore.
type Transport interface {
	Join(connID, group string)
	Leave(connID, group string)
	Emit(group, event string, payload any)
	ConnectionsForUser(userID int64) []string
}

// Broadcast group naming. Snowflake ids are globally unique, but typed
// prefixes keep join/leave deltas self-describing in logs.

func UserGroup(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

func ServerGroup(serverID int64) string {
	return "server:" + strconv.FormatInt(serverID, 10)
}

func ChannelGroup(channelID int64) string {
	return "channel:" + strconv.FormatInt(channelID, 10)
}
