package realtime

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/metrics"
	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/models"
)

// ReceiptStore is the slice of the data store the receipt coordinator needs.
type ReceiptStore interface {
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	AppendReadReceipt(ctx context.Context, messageID string, userID uuid.UUID) (*models.Message, error)
}

// UnreadCache is the optional unread-counter reset hook. May be nil.
type UnreadCache interface {
	ResetUnread(ctx context.Context, userID, conversationID uuid.UUID) error
}

// Receipts records which participants have seen a message. The read-set
// only grows; marking an already-read message is a no-op and broadcasts
// nothing.
type Receipts struct {
	rooms  *Rooms
	store  ReceiptStore
	cache  UnreadCache
	logger zerolog.Logger
}

// NewReceipts creates a read-receipt coordinator.
func NewReceipts(rooms *Rooms, store ReceiptStore, cache UnreadCache, logger zerolog.Logger) *Receipts {
	return &Receipts{rooms: rooms, store: store, cache: cache, logger: logger}
}

// MarkRead appends the connection's identity to the message's read-set,
// persists it, then broadcasts message:read to the room.
func (r *Receipts) MarkRead(ctx context.Context, conn Conn, messageID string) (*models.Message, error) {
	msg, err := r.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistFailure, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}

	userID := conn.User().ID
	if msg.IsReadBy(userID) {
		return msg, nil
	}

	updated, err := r.store.AppendReadReceipt(ctx, messageID, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistFailure, err)
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}

	if r.cache != nil {
		if err := r.cache.ResetUnread(ctx, userID, updated.ConversationID); err != nil {
			r.logger.Warn().Err(err).Stringer("user_id", userID).Msg("unread counter reset failed")
		}
	}

	r.rooms.Broadcast(updated.ConversationID, Encode(EventMessageRead, MessageReadPayload{
		ConversationID: updated.ConversationID,
		MessageID:      updated.ID,
		UserID:         userID,
	}), nil)
	metrics.ReadReceipts.Inc()

	return updated, nil
}
