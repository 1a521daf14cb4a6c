package realtime

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRooms_JoinRequiresMembership(t *testing.T) {
	store := newFakeStore()
	rooms := NewRooms(store)

	alice := newTestUser("alice")
	mallory := newTestUser("mallory")
	conv := uuid.New()
	store.addConversation(conv, alice.ID, newTestUser("bob").ID)

	ctx := context.Background()

	aliceConn := newFakeConn(alice)
	require.NoError(t, rooms.Join(ctx, aliceConn, conv))
	assert.True(t, rooms.IsSubscribed(aliceConn, conv))

	malloryConn := newFakeConn(mallory)
	err := rooms.Join(ctx, malloryConn, conv)
	assert.ErrorIs(t, err, ErrNotAParticipant)
	assert.False(t, rooms.IsSubscribed(malloryConn, conv), "failed join must not mutate subscriber state")
}

func TestRooms_JoinUnknownConversation(t *testing.T) {
	rooms := NewRooms(newFakeStore())
	conn := newFakeConn(newTestUser("alice"))

	err := rooms.Join(context.Background(), conn, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRooms_LeaveIsIdempotent(t *testing.T) {
	store := newFakeStore()
	rooms := NewRooms(store)

	alice := newTestUser("alice")
	conv := uuid.New()
	store.addConversation(conv, alice.ID)

	conn := newFakeConn(alice)
	require.NoError(t, rooms.Join(context.Background(), conn, conv))

	rooms.Leave(conn, conv)
	assert.False(t, rooms.IsSubscribed(conn, conv))
	assert.Zero(t, rooms.Count(), "empty room is removed")

	// Leaving again, or leaving a room never joined, must not panic or
	// change anything.
	rooms.Leave(conn, conv)
	rooms.Leave(conn, uuid.New())
}

func TestRooms_LeaveAll(t *testing.T) {
	store := newFakeStore()
	rooms := NewRooms(store)

	alice := newTestUser("alice")
	conv1 := uuid.New()
	conv2 := uuid.New()
	store.addConversation(conv1, alice.ID)
	store.addConversation(conv2, alice.ID)

	conn := newFakeConn(alice)
	ctx := context.Background()
	require.NoError(t, rooms.Join(ctx, conn, conv1))
	require.NoError(t, rooms.Join(ctx, conn, conv2))
	require.Equal(t, 2, rooms.Count())

	rooms.LeaveAll(conn)
	assert.Zero(t, rooms.Count())

	rooms.LeaveAll(conn) // idempotent
}

func TestRooms_BroadcastScopedToRoom(t *testing.T) {
	store := newFakeStore()
	rooms := NewRooms(store)

	alice := newTestUser("alice")
	bob := newTestUser("bob")
	carol := newTestUser("carol")
	conv := uuid.New()
	other := uuid.New()
	store.addConversation(conv, alice.ID, bob.ID)
	store.addConversation(other, carol.ID)

	aliceConn := newFakeConn(alice)
	bobConn := newFakeConn(bob)
	carolConn := newFakeConn(carol)

	ctx := context.Background()
	require.NoError(t, rooms.Join(ctx, aliceConn, conv))
	require.NoError(t, rooms.Join(ctx, bobConn, conv))
	require.NoError(t, rooms.Join(ctx, carolConn, other))

	rooms.Broadcast(conv, []byte(`{"type":"message:receive"}`), nil)

	assert.Len(t, aliceConn.events(t), 1)
	assert.Len(t, bobConn.events(t), 1)
	assert.Empty(t, carolConn.events(t), "other rooms must not receive the frame")

	aliceConn.reset()
	bobConn.reset()

	rooms.Broadcast(conv, []byte(`{"type":"message:receive"}`), aliceConn)
	assert.Empty(t, aliceConn.events(t), "excluded connection is skipped")
	assert.Len(t, bobConn.events(t), 1)
}

func TestRooms_BroadcastClosesDeadSubscriber(t *testing.T) {
	store := newFakeStore()
	rooms := NewRooms(store)

	alice := newTestUser("alice")
	conv := uuid.New()
	store.addConversation(conv, alice.ID)

	dead := newFakeConn(alice)
	dead.sendErr = ErrSendBufferFull
	require.NoError(t, rooms.Join(context.Background(), dead, conv))

	rooms.Broadcast(conv, []byte("x"), nil)
	assert.Eventually(t, dead.isClosed, waitFor, tick)
}

func TestRooms_MultipleConnectionsPerUser(t *testing.T) {
	store := newFakeStore()
	rooms := NewRooms(store)

	alice := newTestUser("alice")
	conv := uuid.New()
	store.addConversation(conv, alice.ID)

	tab1 := newFakeConn(alice)
	tab2 := newFakeConn(alice)
	ctx := context.Background()
	require.NoError(t, rooms.Join(ctx, tab1, conv))
	require.NoError(t, rooms.Join(ctx, tab2, conv))

	rooms.Broadcast(conv, []byte(`{"type":"message:receive"}`), nil)
	assert.Len(t, tab1.events(t), 1, "each subscribed connection receives its own copy")
	assert.Len(t, tab2.events(t), 1)

	// One tab leaving does not affect the sibling's subscription.
	rooms.Leave(tab1, conv)
	assert.False(t, rooms.IsSubscribed(tab1, conv))
	assert.True(t, rooms.IsSubscribed(tab2, conv))
}
