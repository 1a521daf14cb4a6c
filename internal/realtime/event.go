package realtime

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/models"
)

// EventType names a realtime event. The inbound set is closed: the
// controller dispatches through a single switch, so an unhandled type is a
// protocol error, not a silently dropped message.
type EventType string

// Client -> server events.
const (
	EventJoinRoom    EventType = "join-room"
	EventLeaveRoom   EventType = "leave-room"
	EventSendMessage EventType = "send-message"
	EventEditMessage EventType = "edit-message"
	EventDeleteMsg   EventType = "delete-message"
	EventTyping      EventType = "typing"
	EventReadReceipt EventType = "read-receipt"
)

// Server -> client events.
const (
	EventRoomJoined      EventType = "room:joined"
	EventRoomLeft        EventType = "room:left"
	EventPresenceChanged EventType = "presence:changed"
	EventMessageReceive  EventType = "message:receive"
	EventMessageUpdate   EventType = "message:update"
	EventMessageDelete   EventType = "message:delete"
	EventMessageRead     EventType = "message:read"
	EventUserTyping      EventType = "user:typing"
	EventNotification    EventType = "notification:message"
	EventError           EventType = "error"
)

// Envelope is the wire frame for every event in both directions.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinRoomPayload subscribes the connection to a conversation's room.
type JoinRoomPayload struct {
	ConversationID uuid.UUID `json:"conversationId"`
}

// LeaveRoomPayload unsubscribes the connection. Always succeeds.
type LeaveRoomPayload struct {
	ConversationID uuid.UUID `json:"conversationId"`
}

// SendMessagePayload carries a new message intent.
type SendMessagePayload struct {
	ConversationID uuid.UUID `json:"conversationId"`
	Content        string    `json:"content,omitempty"`
	MediaRef       string    `json:"mediaRef,omitempty"`
}

// EditMessagePayload replaces the content of an existing message.
type EditMessagePayload struct {
	MessageID string `json:"messageId"`
	Content   string `json:"content"`
}

// DeleteMessagePayload soft-deletes an existing message.
type DeleteMessagePayload struct {
	MessageID string `json:"messageId"`
}

// TypingPayload toggles the typing indicator. Not persisted; receivers must
// expire a typing=true signal themselves after a few seconds since no
// further update is guaranteed (the stop event is lost on disconnect).
type TypingPayload struct {
	ConversationID uuid.UUID `json:"conversationId"`
	IsTyping       bool      `json:"isTyping"`
}

// ReadReceiptPayload marks a message as read by the connection's identity.
type ReadReceiptPayload struct {
	MessageID string `json:"messageId"`
}

// PresenceChangedPayload announces an online/offline edge for a user.
type PresenceChangedPayload struct {
	UserID   uuid.UUID `json:"userId"`
	Online   bool      `json:"online"`
	LastSeen int64     `json:"lastSeen"` // Unix ms
}

// MessageReceivePayload delivers a persisted message to a room.
type MessageReceivePayload struct {
	ConversationID uuid.UUID       `json:"conversationId"`
	Message        *models.Message `json:"message"`
}

// MessageDeletePayload announces a soft-deleted message.
type MessageDeletePayload struct {
	ConversationID uuid.UUID `json:"conversationId"`
	MessageID      string    `json:"messageId"`
}

// MessageReadPayload announces a read-set change.
type MessageReadPayload struct {
	ConversationID uuid.UUID `json:"conversationId"`
	MessageID      string    `json:"messageId"`
	UserID         uuid.UUID `json:"userId"`
}

// UserTypingPayload relays a typing indicator to the room.
type UserTypingPayload struct {
	UserID         uuid.UUID `json:"userId"`
	ConversationID uuid.UUID `json:"conversationId"`
	IsTyping       bool      `json:"isTyping"`
}

// NotificationPayload is the best-effort out-of-room nudge for participants
// whose connections are not subscribed to the room.
type NotificationPayload struct {
	ConversationID uuid.UUID `json:"conversationId"`
	MessageID      string    `json:"messageId"`
	SenderID       uuid.UUID `json:"senderId"`
}

// ErrorPayload reports a rejected operation to the issuing connection only.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Encode marshals an event envelope. Payloads are plain structs, so a
// marshal failure is a programming error and panics.
func Encode(t EventType, payload any) []byte {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			panic(err)
		}
		raw = data
	}
	data, err := json.Marshal(Envelope{Type: t, Payload: raw})
	if err != nil {
		panic(err)
	}
	return data
}
