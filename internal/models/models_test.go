package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestConversationHasParticipant(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	conv := &Conversation{Participants: []uuid.UUID{alice, bob}}

	assert.True(t, conv.HasParticipant(alice))
	assert.True(t, conv.HasParticipant(bob))
	assert.False(t, conv.HasParticipant(uuid.New()))
}

func TestMessageIsReadBy(t *testing.T) {
	reader := uuid.New()
	msg := &Message{ReadBy: []uuid.UUID{reader}}

	assert.True(t, msg.IsReadBy(reader))
	assert.False(t, msg.IsReadBy(uuid.New()))

	empty := &Message{}
	assert.False(t, empty.IsReadBy(reader))
}

func TestAPITokenExpired(t *testing.T) {
	now := time.Now()

	live := &APIToken{ExpiresAt: now.Add(time.Hour)}
	assert.False(t, live.Expired(now))

	stale := &APIToken{ExpiresAt: now.Add(-time.Hour)}
	assert.True(t, stale.Expired(now))

	forever := &APIToken{}
	assert.False(t, forever.Expired(now))
}
