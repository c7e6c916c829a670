package models

import "time"

// Member is a user's membership in one server. IsOwner is an unconditional
// bypass flag, independent of the member's roles.
type Member struct {
	ServerID int64     `json:"server_id,string"`
	UserID   int64     `json:"user_id,string"`
	Nickname *string   `json:"nickname,omitempty"`
	IsOwner  bool      `json:"is_owner"`
	JoinedAt time.Time `json:"joined_at"`
	RoleIDs  []int64   `json:"role_ids"`
}
