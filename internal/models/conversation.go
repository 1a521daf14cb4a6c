package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation represents a chat between two or more users. A two-party chat
// is just a conversation with IsGroup=false; the participant model is uniform.
type Conversation struct {
	ID            uuid.UUID   `json:"id"`
	Participants  []uuid.UUID `json:"participants"`
	IsGroup       bool        `json:"is_group"`
	Name          string      `json:"name,omitempty"`
	GroupAdmin    *uuid.UUID  `json:"group_admin,omitempty"`
	LastMessageID string      `json:"last_message_id,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	LastActiveAt  time.Time   `json:"last_active_at"`
}

// HasParticipant reports whether the user belongs to the conversation.
func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
