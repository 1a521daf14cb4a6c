package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/models"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

// fakeConn records every frame sent to it.
type fakeConn struct {
	id   uuid.UUID
	user *models.User

	mu      sync.Mutex
	frames  [][]byte
	sendErr error
	closed  bool
}

func newFakeConn(user *models.User) *fakeConn {
	return &fakeConn{id: uuid.New(), user: user}
}

func (c *fakeConn) ID() uuid.UUID      { return c.id }
func (c *fakeConn) User() *models.User { return c.user }

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	if c.closed {
		return ErrConnClosed
	}
	c.frames = append(c.frames, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// events decodes every received frame.
func (c *fakeConn) events(t *testing.T) []Envelope {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Envelope, 0, len(c.frames))
	for _, f := range c.frames {
		var env Envelope
		require.NoError(t, json.Unmarshal(f, &env))
		out = append(out, env)
	}
	return out
}

// eventsOfType filters received events by type.
func (c *fakeConn) eventsOfType(t *testing.T, et EventType) []Envelope {
	t.Helper()
	var out []Envelope
	for _, env := range c.events(t) {
		if env.Type == et {
			out = append(out, env)
		}
	}
	return out
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

// decodePayload unmarshals an envelope payload into dst.
func decodePayload(t *testing.T, env Envelope, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Payload, dst))
}

// fakeStore is an in-memory Store.
type fakeStore struct {
	mu           sync.Mutex
	users        map[uuid.UUID]*models.User
	participants map[uuid.UUID][]uuid.UUID
	messages     map[string]*models.Message
	presence     map[uuid.UUID]bool
	lastActivity map[uuid.UUID]string

	createErr       error
	getErr          error
	participantsErr error
	presenceErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:        make(map[uuid.UUID]*models.User),
		participants: make(map[uuid.UUID][]uuid.UUID),
		messages:     make(map[string]*models.Message),
		presence:     make(map[uuid.UUID]bool),
		lastActivity: make(map[uuid.UUID]string),
	}
}

func (s *fakeStore) addUser(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

func (s *fakeStore) addConversation(id uuid.UUID, participants ...uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants[id] = participants
}

func (s *fakeStore) addMessage(msg *models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.ID] = msg
}

func (s *fakeStore) GetParticipants(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.participantsErr != nil {
		return nil, s.participantsErr
	}
	return s.participants[conversationID], nil
}

// Participants lets the fake double as a ParticipantSource.
func (s *fakeStore) Participants(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error) {
	return s.GetParticipants(ctx, conversationID)
}

func (s *fakeStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.users[id], nil
}

func (s *fakeStore) UpdateUserPresence(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.presenceErr != nil {
		return s.presenceErr
	}
	s.presence[id] = online
	if u, ok := s.users[id]; ok {
		u.IsOnline = online
		u.LastSeen = lastSeen
	}
	return nil
}

func (s *fakeStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	clone := *msg
	s.messages[msg.ID] = &clone
	return nil
}

func (s *fakeStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	msg, ok := s.messages[id]
	if !ok {
		return nil, nil
	}
	clone := *msg
	return &clone, nil
}

func (s *fakeStore) UpdateMessageContent(ctx context.Context, id, content string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok {
		return nil, nil
	}
	msg.Content = content
	msg.Edited = true
	clone := *msg
	return &clone, nil
}

func (s *fakeStore) MarkMessageDeleted(ctx context.Context, id string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok {
		return nil, nil
	}
	msg.Deleted = true
	clone := *msg
	return &clone, nil
}

func (s *fakeStore) UpdateConversationLastMessage(ctx context.Context, conversationID uuid.UUID, messageID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity[conversationID] = messageID
	return nil
}

func (s *fakeStore) AppendReadReceipt(ctx context.Context, messageID string, userID uuid.UUID) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[messageID]
	if !ok {
		return nil, nil
	}
	if !msg.IsReadBy(userID) {
		msg.ReadBy = append(msg.ReadBy, userID)
	}
	clone := *msg
	return &clone, nil
}

func (s *fakeStore) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *fakeStore) storedMessage(id string) *models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages[id]
}

func newTestUser(name string) *models.User {
	return &models.User{ID: uuid.New(), Username: name}
}

func newTestMessage(conversationID, senderID uuid.UUID, content string) *models.Message {
	return &models.Message{
		ID:             ulid.Make().String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Timestamp:      time.Now().UnixMilli(),
	}
}
