package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresence_OnlineBroadcast(t *testing.T) {
	store := newFakeStore()
	registry := NewRegistry()
	presence := NewPresence(registry, store, nil, zerolog.Nop())

	alice := newTestUser("alice")
	bob := newTestUser("bob")
	store.addUser(alice)
	store.addUser(bob)

	bobConn := newFakeConn(bob)
	registry.Register(bobConn)

	presence.HandleOnline(context.Background(), alice)

	events := bobConn.eventsOfType(t, EventPresenceChanged)
	require.Len(t, events, 1)

	var p PresenceChangedPayload
	decodePayload(t, events[0], &p)
	assert.Equal(t, alice.ID, p.UserID)
	assert.True(t, p.Online)

	assert.True(t, store.presence[alice.ID], "store reflects the online transition")
}

func TestPresence_OfflineStampsLastSeen(t *testing.T) {
	store := newFakeStore()
	registry := NewRegistry()
	presence := NewPresence(registry, store, nil, zerolog.Nop())

	alice := newTestUser("alice")
	store.addUser(alice)

	observer := newFakeConn(newTestUser("bob"))
	registry.Register(observer)

	before := time.Now().UnixMilli()
	presence.HandleOffline(context.Background(), alice)

	events := observer.eventsOfType(t, EventPresenceChanged)
	require.Len(t, events, 1)

	var p PresenceChangedPayload
	decodePayload(t, events[0], &p)
	assert.False(t, p.Online)
	assert.GreaterOrEqual(t, p.LastSeen, before)

	assert.False(t, store.presence[alice.ID])
}

func TestPresence_StoreFailureStillBroadcasts(t *testing.T) {
	store := newFakeStore()
	store.presenceErr = errors.New("db down")
	registry := NewRegistry()
	presence := NewPresence(registry, store, nil, zerolog.Nop())

	observer := newFakeConn(newTestUser("bob"))
	registry.Register(observer)

	presence.HandleOnline(context.Background(), newTestUser("alice"))

	assert.Len(t, observer.eventsOfType(t, EventPresenceChanged), 1,
		"presence announcements are best-effort on the store side")
}

func TestPresence_StatusOf(t *testing.T) {
	store := newFakeStore()
	registry := NewRegistry()
	presence := NewPresence(registry, store, nil, zerolog.Nop())
	ctx := context.Background()

	alice := newTestUser("alice")
	alice.LastSeen = time.Now().Add(-time.Hour).UTC()
	store.addUser(alice)

	// Offline: last seen comes from the store.
	status, err := presence.StatusOf(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, status.Online)
	assert.Equal(t, alice.LastSeen, status.LastSeen)

	// Online as soon as a connection registers.
	conn := newFakeConn(alice)
	registry.Register(conn)
	status, err = presence.StatusOf(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, status.Online)

	// Unknown users are an error, not a zero status.
	_, err = presence.StatusOf(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

// fakeLastSeen is an in-memory LastSeenCache.
type fakeLastSeen struct {
	mu   sync.Mutex
	seen map[uuid.UUID]time.Time
}

func newFakeLastSeen() *fakeLastSeen {
	return &fakeLastSeen{seen: make(map[uuid.UUID]time.Time)}
}

func (f *fakeLastSeen) SetLastSeen(ctx context.Context, userID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen[userID] = at
	return nil
}

func (f *fakeLastSeen) LastSeen(ctx context.Context, userID uuid.UUID) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[userID], nil
}

func TestPresence_StatusOfPrefersCache(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("store should not be hit on a cache hit")
	cache := newFakeLastSeen()
	registry := NewRegistry()
	presence := NewPresence(registry, store, cache, zerolog.Nop())

	userID := uuid.New()
	seen := time.Now().Add(-5 * time.Minute).UTC().Truncate(time.Millisecond)
	require.NoError(t, cache.SetLastSeen(context.Background(), userID, seen))

	status, err := presence.StatusOf(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, status.Online)
	assert.Equal(t, seen, status.LastSeen)
}

func TestPresence_OfflineWritesCache(t *testing.T) {
	store := newFakeStore()
	cache := newFakeLastSeen()
	presence := NewPresence(NewRegistry(), store, cache, zerolog.Nop())

	alice := newTestUser("alice")
	store.addUser(alice)
	presence.HandleOffline(context.Background(), alice)

	at, err := cache.LastSeen(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.False(t, at.IsZero())
}
