package models

import "time"

// ConversationStatus tracks whether a conversation is still accepting messages.
type ConversationStatus string

const (
	ConversationActive ConversationStatus = "active"
	ConversationClosed ConversationStatus = "closed"
)

// Conversation is the unit of context continuity for one sender within one
// project scope on one channel. At most one Conversation per
// (Channel, SenderID, Project) may be active at a time.
type Conversation struct {
	ID           int64              `json:"id"`
	Channel      ChannelType        `json:"channel"`
	SenderID     string             `json:"sender_id"`
	Project      string             `json:"project,omitempty"`
	StartedAt    time.Time          `json:"started_at"`
	LastActivity time.Time          `json:"last_activity"`
	Summary      string             `json:"summary,omitempty"`
	Status       ConversationStatus `json:"status"`
}

// IsActive reports whether the conversation can still accept messages.
func (c *Conversation) IsActive() bool {
	return c != nil && c.Status == ConversationActive
}
