package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/metrics"
	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/models"
)

// PresenceStore is the slice of the data store presence needs.
type PresenceStore interface {
	UpdateUserPresence(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// LastSeenCache is the optional Redis-backed fast path for last-seen
// lookups. May be nil.
type LastSeenCache interface {
	SetLastSeen(ctx context.Context, userID uuid.UUID, at time.Time) error
	LastSeen(ctx context.Context, userID uuid.UUID) (time.Time, error)
}

// Status is the presence snapshot for one user.
type Status struct {
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"last_seen"`
}

// Presence derives online/offline state from registry transitions. It only
// acts on the 0->1 and 1->0 edges of a user's live-connection count;
// redundant tabs opening and closing are invisible to everyone else.
type Presence struct {
	registry *Registry
	store    PresenceStore
	cache    LastSeenCache
	logger   zerolog.Logger
}

// NewPresence creates a presence tracker over the given registry.
func NewPresence(registry *Registry, store PresenceStore, cache LastSeenCache, logger zerolog.Logger) *Presence {
	return &Presence{registry: registry, store: store, cache: cache, logger: logger}
}

// HandleOnline records and announces a user's 0->1 edge. The store write is
// best-effort: a failed presence update never blocks the connection.
func (p *Presence) HandleOnline(ctx context.Context, user *models.User) {
	now := time.Now().UTC()
	if err := p.store.UpdateUserPresence(ctx, user.ID, true, now); err != nil {
		p.logger.Warn().Err(err).Stringer("user_id", user.ID).Msg("presence store update failed")
	}

	metrics.PresenceTransitions.WithLabelValues("online").Inc()
	p.broadcast(user.ID, true, now)
}

// HandleOffline records and announces a user's 1->0 edge, stamping last-seen
// with the close time.
func (p *Presence) HandleOffline(ctx context.Context, user *models.User) {
	now := time.Now().UTC()
	if err := p.store.UpdateUserPresence(ctx, user.ID, false, now); err != nil {
		p.logger.Warn().Err(err).Stringer("user_id", user.ID).Msg("presence store update failed")
	}
	if p.cache != nil {
		if err := p.cache.SetLastSeen(ctx, user.ID, now); err != nil {
			p.logger.Warn().Err(err).Stringer("user_id", user.ID).Msg("last-seen cache update failed")
		}
	}

	metrics.PresenceTransitions.WithLabelValues("offline").Inc()
	p.broadcast(user.ID, false, now)
}

func (p *Presence) broadcast(userID uuid.UUID, online bool, at time.Time) {
	data := Encode(EventPresenceChanged, PresenceChangedPayload{
		UserID:   userID,
		Online:   online,
		LastSeen: at.UnixMilli(),
	})
	p.registry.Broadcast(data, nil)
}

// StatusOf reports whether a user is online and when they were last seen.
// Usable by REST handlers composing conversation lists.
func (p *Presence) StatusOf(ctx context.Context, userID uuid.UUID) (Status, error) {
	if p.registry.IsOnline(userID) {
		return Status{Online: true, LastSeen: time.Now().UTC()}, nil
	}

	if p.cache != nil {
		if at, err := p.cache.LastSeen(ctx, userID); err == nil && !at.IsZero() {
			return Status{Online: false, LastSeen: at}, nil
		}
	}

	user, err := p.store.GetUserByID(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	if user == nil {
		return Status{}, ErrNotFound
	}
	return Status{Online: false, LastSeen: user.LastSeen}, nil
}
