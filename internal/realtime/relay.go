package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/metrics"
	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/models"
)

// MessageStore is the slice of the data store the relay needs.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	UpdateMessageContent(ctx context.Context, id, content string) (*models.Message, error)
	MarkMessageDeleted(ctx context.Context, id string) (*models.Message, error)
	UpdateConversationLastMessage(ctx context.Context, conversationID uuid.UUID, messageID string, at time.Time) error
}

// MessageCache is the optional Redis-backed recent-message window and unread
// bookkeeping. May be nil.
type MessageCache interface {
	CacheMessage(ctx context.Context, msg *models.Message) error
	InvalidateMessages(ctx context.Context, conversationID uuid.UUID) error
	IncrementUnread(ctx context.Context, userID, conversationID uuid.UUID) error
}

// Relay turns a send/edit/delete intent into a durable store write followed
// by a room broadcast, in that order. A message is never announced before
// the store has accepted it, and a failed write surfaces only to the sender.
// Concurrent sends from one connection are not ordered relative to each
// other beyond their persistence arrival order.
type Relay struct {
	rooms        *Rooms
	registry     *Registry
	store        MessageStore
	participants ParticipantSource
	cache        MessageCache
	logger       zerolog.Logger
}

// NewRelay creates a message relay.
func NewRelay(rooms *Rooms, registry *Registry, store MessageStore, participants ParticipantSource, cache MessageCache, logger zerolog.Logger) *Relay {
	return &Relay{
		rooms:        rooms,
		registry:     registry,
		store:        store,
		participants: participants,
		cache:        cache,
		logger:       logger,
	}
}

// Send persists and fans out a new message. The relay never retries a
// failed persist; duplicate-send disambiguation belongs to the client.
func (r *Relay) Send(ctx context.Context, conn Conn, conversationID uuid.UUID, content, mediaRef string) (*models.Message, error) {
	if content == "" && mediaRef == "" {
		return nil, fmt.Errorf("%w: empty message", ErrProtocol)
	}

	parts, err := r.participants.Participants(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("resolving participants: %w", err)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: conversation %s", ErrNotFound, conversationID)
	}

	sender := conn.User().ID
	member := false
	for _, p := range parts {
		if p == sender {
			member = true
			break
		}
	}
	if !member {
		return nil, ErrNotAParticipant
	}

	msg := &models.Message{
		ID:             ulid.Make().String(),
		ConversationID: conversationID,
		SenderID:       sender,
		Content:        content,
		MediaRef:       mediaRef,
		Timestamp:      time.Now().UnixMilli(),
	}

	start := time.Now()
	if err := r.store.CreateMessage(ctx, msg); err != nil {
		metrics.PersistFailures.Inc()
		return nil, fmt.Errorf("%w: %v", ErrPersistFailure, err)
	}
	metrics.PersistLatency.Observe(time.Since(start).Seconds())

	// The message is durable from here on: everything below is announcement
	// and bookkeeping, logged but never surfaced as a send failure.
	if err := r.store.UpdateConversationLastMessage(ctx, conversationID, msg.ID, time.UnixMilli(msg.Timestamp)); err != nil {
		r.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("conversation activity update failed")
	}
	if r.cache != nil {
		if err := r.cache.CacheMessage(ctx, msg); err != nil {
			r.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("message cache write failed")
		}
	}

	r.rooms.Broadcast(conversationID, Encode(EventMessageReceive, MessageReceivePayload{
		ConversationID: conversationID,
		Message:        msg,
	}), nil)
	metrics.MessagesRelayed.WithLabelValues("send").Inc()

	r.notifyUnsubscribed(ctx, parts, msg)

	return msg, nil
}

// notifyUnsubscribed nudges participants whose live connections are not in
// the room. Best-effort: a missed notification costs freshness, not
// correctness.
func (r *Relay) notifyUnsubscribed(ctx context.Context, participants []uuid.UUID, msg *models.Message) {
	data := Encode(EventNotification, NotificationPayload{
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		SenderID:       msg.SenderID,
	})

	for _, userID := range participants {
		if userID == msg.SenderID {
			continue
		}

		subscribed := false
		for _, c := range r.registry.ConnectionsOf(userID) {
			if r.rooms.IsSubscribed(c, msg.ConversationID) {
				subscribed = true
				continue
			}
			if err := c.Send(data); err != nil {
				go c.Close()
			}
		}

		if !subscribed && r.cache != nil {
			if err := r.cache.IncrementUnread(ctx, userID, msg.ConversationID); err != nil {
				r.logger.Warn().Err(err).Stringer("user_id", userID).Msg("unread counter update failed")
			}
		}
	}
}

// invalidateCache drops the conversation's cached message window after an
// edit or delete. The cached members are immutable snapshots that would
// otherwise serve pre-edit content until they expire. Best-effort: on
// failure history reads may be stale, never wrong about what was persisted.
func (r *Relay) invalidateCache(ctx context.Context, conversationID uuid.UUID) {
	if r.cache == nil {
		return
	}
	if err := r.cache.InvalidateMessages(ctx, conversationID); err != nil {
		r.logger.Warn().Err(err).Stringer("conversation_id", conversationID).Msg("message cache invalidation failed")
	}
}

// Edit replaces a message's content, persists the change, then broadcasts
// message:update. Only the original sender may edit.
func (r *Relay) Edit(ctx context.Context, conn Conn, messageID, content string) (*models.Message, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: empty content", ErrProtocol)
	}

	msg, err := r.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistFailure, err)
	}
	if msg == nil || msg.Deleted {
		return nil, fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}
	if msg.SenderID != conn.User().ID {
		return nil, ErrNotSender
	}

	updated, err := r.store.UpdateMessageContent(ctx, messageID, content)
	if err != nil {
		metrics.PersistFailures.Inc()
		return nil, fmt.Errorf("%w: %v", ErrPersistFailure, err)
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}

	r.invalidateCache(ctx, updated.ConversationID)

	r.rooms.Broadcast(updated.ConversationID, Encode(EventMessageUpdate, MessageReceivePayload{
		ConversationID: updated.ConversationID,
		Message:        updated,
	}), nil)
	metrics.MessagesRelayed.WithLabelValues("edit").Inc()

	return updated, nil
}

// Delete soft-deletes a message, persists the flag, then broadcasts
// message:delete. Only the original sender may delete.
func (r *Relay) Delete(ctx context.Context, conn Conn, messageID string) (*models.Message, error) {
	msg, err := r.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistFailure, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}
	if msg.SenderID != conn.User().ID {
		return nil, ErrNotSender
	}

	deleted, err := r.store.MarkMessageDeleted(ctx, messageID)
	if err != nil {
		metrics.PersistFailures.Inc()
		return nil, fmt.Errorf("%w: %v", ErrPersistFailure, err)
	}
	if deleted == nil {
		return nil, fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}

	r.invalidateCache(ctx, deleted.ConversationID)

	r.rooms.Broadcast(deleted.ConversationID, Encode(EventMessageDelete, MessageDeletePayload{
		ConversationID: deleted.ConversationID,
		MessageID:      deleted.ID,
	}), nil)
	metrics.MessagesRelayed.WithLabelValues("delete").Inc()

	return deleted, nil
}
