package realtime

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTyping_ExcludesOriginatingConnection(t *testing.T) {
	store := newFakeStore()
	rooms := NewRooms(store)
	typing := NewTyping(rooms)
	ctx := context.Background()

	alice := newTestUser("alice")
	bob := newTestUser("bob")
	conv := uuid.New()
	store.addConversation(conv, alice.ID, bob.ID)

	aliceConn := newFakeConn(alice)
	bobConn := newFakeConn(bob)
	require.NoError(t, rooms.Join(ctx, aliceConn, conv))
	require.NoError(t, rooms.Join(ctx, bobConn, conv))

	typing.SetTyping(aliceConn, conv, true)

	assert.Empty(t, aliceConn.eventsOfType(t, EventUserTyping), "no self echo")

	events := bobConn.eventsOfType(t, EventUserTyping)
	require.Len(t, events, 1)

	var p UserTypingPayload
	decodePayload(t, events[0], &p)
	assert.Equal(t, alice.ID, p.UserID)
	assert.Equal(t, conv, p.ConversationID)
	assert.True(t, p.IsTyping)

	typing.SetTyping(aliceConn, conv, false)
	events = bobConn.eventsOfType(t, EventUserTyping)
	require.Len(t, events, 2)
	decodePayload(t, events[1], &p)
	assert.False(t, p.IsTyping)
}

func TestTyping_ScopedToRoom(t *testing.T) {
	store := newFakeStore()
	rooms := NewRooms(store)
	typing := NewTyping(rooms)
	ctx := context.Background()

	alice := newTestUser("alice")
	carol := newTestUser("carol")
	conv := uuid.New()
	other := uuid.New()
	store.addConversation(conv, alice.ID)
	store.addConversation(other, carol.ID)

	aliceConn := newFakeConn(alice)
	carolConn := newFakeConn(carol)
	require.NoError(t, rooms.Join(ctx, aliceConn, conv))
	require.NoError(t, rooms.Join(ctx, carolConn, other))

	typing.SetTyping(aliceConn, conv, true)
	assert.Empty(t, carolConn.eventsOfType(t, EventUserTyping))
}
