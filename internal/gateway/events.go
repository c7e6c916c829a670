package gateway

import "encoding/json"

// Op codes for gateway payloads.
const (
	OpDispatch       = 0
	OpHeartbeat      = 1
	OpIdentify       = 2
	OpPresenceUpdate = 3
	OpReconnect      = 7
	OpHello          = 10
	OpHeartbeatAck   = 11
)

// Event names for DISPATCH payloads.
const (
	EventReady             = "READY"
	EventServerCreate      = "SERVER_CREATE"
	EventServerDelete      = "SERVER_DELETE"
	EventChannelCreate     = "CHANNEL_CREATE"
	EventChannelUpdate     = "CHANNEL_UPDATE"
	EventChannelDelete     = "CHANNEL_DELETE"
	EventDMChannelCreate   = "DM_CHANNEL_CREATE"
	EventMemberJoin        = "MEMBER_JOIN"
	EventMemberLeave       = "MEMBER_LEAVE"
	EventMemberUpdate      = "MEMBER_UPDATE"
	EventRoleCreate        = "ROLE_CREATE"
	EventRoleUpdate        = "ROLE_UPDATE"
	EventRoleDelete        = "ROLE_DELETE"
	EventPermissionsUpdate = "PERMISSIONS_UPDATE"
	EventPresenceUpdate    = "PRESENCE_UPDATE"
)

// GatewayPayload is the envelope for all gateway messages.
type GatewayPayload struct {
	Op       int             `json:"op"`
	Data     json.RawMessage `json:"d,omitempty"`
	Sequence *int64          `json:"s,omitempty"`
	Event    *string         `json:"t,omitempty"`
}

// IdentifyData is sent by the client in an Op 2 IDENTIFY.
type IdentifyData struct {
	Token string `json:"token"`
}

// HelloData is sent by the server after WebSocket connect.
type HelloData struct {
	HeartbeatInterval int `json:"heartbeat_interval"`
}

// ReadyData is sent by the server after successful IDENTIFY.
type ReadyData struct {
	SessionID string  `json:"session_id"`
	UserID    int64   `json:"user_id,string"`
	Servers   []int64 `json:"servers"`
}

// PermissionsUpdateData tells clients to refetch authorization-derived
// state for a server (and optionally one channel).
type PermissionsUpdateData struct {
	ServerID  int64  `json:"server_id,string"`
	ChannelID *int64 `json:"channel_id,string,omitempty"`
}

// PresenceUpdateData is the payload for PRESENCE_UPDATE events.
type PresenceUpdateData struct {
	UserID int64  `json:"user_id,string"`
	Status string `json:"status"`
}

// ClientPresenceUpdate is sent by the client in an Op 3 PRESENCE_UPDATE.
type ClientPresenceUpdate struct {
	Status string `json:"status"`
}
