package models

type OverrideTarget string

const (
	OverrideTargetRole   OverrideTarget = "role"
	OverrideTargetMember OverrideTarget = "member"
)

// Override is a per-channel allow/deny permission delta scoped to one role
// or one member. At most one override exists per (channel, target type,
// target id); the channel_overrides primary key enforces this.
type Override struct {
	ChannelID  int64          `json:"channel_id,string"`
	TargetType OverrideTarget `json:"target_type"`
	TargetID   int64          `json:"target_id,string"`
	Allow      []string       `json:"allow"`
	Deny       []string       `json:"deny"`
}
