package realtime

import "github.com/google/uuid"

// Typing relays typing indicators. Nothing here is persisted and delivery
// is best-effort: a receiver must treat typing=true as stale after a few
// seconds, because the matching typing=false is not guaranteed to arrive
// (the sender may simply disconnect).
type Typing struct {
	rooms *Rooms
}

// NewTyping creates a typing coordinator.
func NewTyping(rooms *Rooms) *Typing {
	return &Typing{rooms: rooms}
}

// SetTyping broadcasts the indicator to the room, excluding the originating
// connection so senders don't see their own echo.
func (t *Typing) SetTyping(conn Conn, conversationID uuid.UUID, isTyping bool) {
	t.rooms.Broadcast(conversationID, Encode(EventUserTyping, UserTypingPayload{
		UserID:         conn.User().ID,
		ConversationID: conversationID,
		IsTyping:       isTyping,
	}), conn)
}
