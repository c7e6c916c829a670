package models

import "time"

type ChannelKind string

const (
	ChannelKindText ChannelKind = "TEXT"
	ChannelKindWeb  ChannelKind = "WEB"
	ChannelKindDM   ChannelKind = "DM"
)

// Channel is a text/web channel inside a server, or a DM channel when
// ServerID is nil. DM channels carry Recipients and no overrides.
type Channel struct {
	ID         int64       `json:"id,string"`
	ServerID   *int64      `json:"server_id,string,omitempty"`
	Kind       ChannelKind `json:"kind"`
	Name       string      `json:"name"`
	Topic      *string     `json:"topic,omitempty"`
	CategoryID *int64      `json:"category_id,string,omitempty"`
	Position   int         `json:"position"`
	Overrides  []Override  `json:"permission_overrides"`
	Recipients []int64     `json:"recipients,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// IsDM reports whether the channel is a direct-message channel.
func (c *Channel) IsDM() bool {
	return c.Kind == ChannelKindDM || c.ServerID == nil
}

// HasRecipient reports whether userID is a recipient of a DM channel.
func (c *Channel) HasRecipient(userID int64) bool {
	for _, id := range c.Recipients {
		if id == userID {
			return true
		}
	}
	return false
}
