// Package realtime implements the ChatWave realtime messaging core: the
// session registry, room fan-out, presence tracking, message relay, typing
// and read-receipt coordination, and the lifecycle of each websocket
// connection.
package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/models"
)

// Store is the slice of the durable data store the realtime core touches.
// *store.PostgresStore and *store.SQLiteStore satisfy it.
type Store interface {
	GetParticipants(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateUserPresence(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	UpdateMessageContent(ctx context.Context, id, content string) (*models.Message, error)
	MarkMessageDeleted(ctx context.Context, id string) (*models.Message, error)
	UpdateConversationLastMessage(ctx context.Context, conversationID uuid.UUID, messageID string, at time.Time) error
	AppendReadReceipt(ctx context.Context, messageID string, userID uuid.UUID) (*models.Message, error)
}

// Cache is the optional Redis-backed acceleration layer. *store.RedisStore
// satisfies it; a nil Cache disables caching, nothing else changes.
type Cache interface {
	CacheMessage(ctx context.Context, msg *models.Message) error
	InvalidateMessages(ctx context.Context, conversationID uuid.UUID) error
	CacheParticipants(ctx context.Context, conversationID uuid.UUID, participants []uuid.UUID) error
	CachedParticipants(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error)
	SetLastSeen(ctx context.Context, userID uuid.UUID, at time.Time) error
	LastSeen(ctx context.Context, userID uuid.UUID) (time.Time, error)
	IncrementUnread(ctx context.Context, userID, conversationID uuid.UUID) error
	ResetUnread(ctx context.Context, userID, conversationID uuid.UUID) error
}

// Verifier resolves a handshake bearer token to a user. auth.StoreVerifier
// satisfies it.
type Verifier interface {
	Verify(ctx context.Context, token string) (*models.User, error)
}

// Options tunes per-connection transport behavior. Zero values fall back to
// the defaults below.
type Options struct {
	HeartbeatInterval time.Duration
	WriteTimeout      time.Duration
	MaxMessageSize    int64
	SendBuffer        int
	RateLimitBurst    int
	RateLimitRefill   time.Duration
}

func (o Options) withDefaults() Options {
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 60 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 8 * 1024
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.RateLimitBurst <= 0 {
		o.RateLimitBurst = 20
	}
	if o.RateLimitRefill <= 0 {
		o.RateLimitRefill = time.Second
	}
	return o
}

// Hub wires the realtime components together and owns connection
// admission and teardown.
type Hub struct {
	registry *Registry
	rooms    *Rooms
	presence *Presence
	relay    *Relay
	typing   *Typing
	receipts *Receipts

	verifier Verifier
	logger   zerolog.Logger
	opts     Options
}

// NewHub creates a fully wired hub. cache may be nil.
func NewHub(st Store, cache Cache, verifier Verifier, logger zerolog.Logger, opts Options) *Hub {
	registry := NewRegistry()
	participants := &cachedParticipants{store: st, cache: cache, logger: logger}
	rooms := NewRooms(participants)

	var lastSeen LastSeenCache
	var msgCache MessageCache
	var unreadCache UnreadCache
	if cache != nil {
		lastSeen = cache
		msgCache = cache
		unreadCache = cache
	}

	return &Hub{
		registry: registry,
		rooms:    rooms,
		presence: NewPresence(registry, st, lastSeen, logger),
		relay:    NewRelay(rooms, registry, st, participants, msgCache, logger),
		typing:   NewTyping(rooms),
		receipts: NewReceipts(rooms, st, unreadCache, logger),
		verifier: verifier,
		logger:   logger,
		opts:     opts.withDefaults(),
	}
}

// Presence exposes the tracker for REST handlers composing conversation
// lists.
func (h *Hub) Presence() *Presence { return h.presence }

// IsOnline reports whether a user has at least one live connection.
func (h *Hub) IsOnline(userID uuid.UUID) bool { return h.registry.IsOnline(userID) }

// Stats returns current connection, online-user and active-room counts.
func (h *Hub) Stats() (conns, users, rooms int) {
	conns, users = h.registry.Counts()
	return conns, users, h.rooms.Count()
}

// cachedParticipants fronts the store's participant lookup with the Redis
// set cache. Cache misses and cache errors both fall through to the store.
type cachedParticipants struct {
	store  Store
	cache  Cache
	logger zerolog.Logger
}

func (c *cachedParticipants) Participants(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error) {
	if c.cache != nil {
		if parts, err := c.cache.CachedParticipants(ctx, conversationID); err == nil && len(parts) > 0 {
			return parts, nil
		}
	}

	parts, err := c.store.GetParticipants(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if c.cache != nil && len(parts) > 0 {
		if err := c.cache.CacheParticipants(ctx, conversationID, parts); err != nil {
			c.logger.Warn().Err(err).Stringer("conversation_id", conversationID).Msg("participant cache write failed")
		}
	}
	return parts, nil
}
