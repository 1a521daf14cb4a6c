package models

import "github.com/google/uuid"

// Message represents a chat message. IDs are ULIDs so lexical order matches
// creation order. ReadBy grows monotonically and never holds duplicates;
// deletion is a soft flag, the row itself is never removed.
type Message struct {
	ID             string      `json:"id"` // ULID
	ConversationID uuid.UUID   `json:"conversation_id"`
	SenderID       uuid.UUID   `json:"sender_id"`
	Content        string      `json:"content,omitempty"`
	MediaRef       string      `json:"media_ref,omitempty"`
	ReadBy         []uuid.UUID `json:"read_by,omitempty"`
	Edited         bool        `json:"edited,omitempty"`
	Deleted        bool        `json:"deleted,omitempty"`
	Timestamp      int64       `json:"ts"` // Unix ms
}

// IsReadBy reports whether the user is already in the message's read-set.
func (m *Message) IsReadBy(userID uuid.UUID) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}
