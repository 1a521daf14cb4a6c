package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/metrics"
)

// ParticipantSource resolves a conversation's participant set. The store
// (optionally fronted by the Redis cache) implements it; an empty set means
// the conversation does not exist.
type ParticipantSource interface {
	Participants(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error)
}

// Rooms maps each conversation to the connections currently subscribed to
// it. The subscriber set is a purely in-memory projection, distinct from the
// persisted participant set: every subscriber's identity is a participant,
// but participants with no live subscribed connection simply aren't here.
// The maps are rebuilt from client re-subscription after a restart.
type Rooms struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[uuid.UUID]Conn     // conversationID -> connID -> conn
	byConn      map[uuid.UUID]map[uuid.UUID]struct{} // connID -> set of conversationIDs

	participants ParticipantSource
}

// NewRooms creates an empty room manager.
func NewRooms(participants ParticipantSource) *Rooms {
	return &Rooms{
		subscribers:  make(map[uuid.UUID]map[uuid.UUID]Conn),
		byConn:       make(map[uuid.UUID]map[uuid.UUID]struct{}),
		participants: participants,
	}
}

// Join subscribes a connection to a conversation's room after checking that
// its identity belongs to the participant set. Unauthorized joins return
// ErrNotAParticipant and leave subscriber state untouched.
func (r *Rooms) Join(ctx context.Context, conn Conn, conversationID uuid.UUID) error {
	parts, err := r.participants.Participants(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("resolving participants: %w", err)
	}
	if len(parts) == 0 {
		return fmt.Errorf("%w: conversation %s", ErrNotFound, conversationID)
	}

	userID := conn.User().ID
	member := false
	for _, p := range parts {
		if p == userID {
			member = true
			break
		}
	}
	if !member {
		return ErrNotAParticipant
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.subscribers[conversationID]
	if !ok {
		subs = make(map[uuid.UUID]Conn)
		r.subscribers[conversationID] = subs
	}
	subs[conn.ID()] = conn

	joined, ok := r.byConn[conn.ID()]
	if !ok {
		joined = make(map[uuid.UUID]struct{})
		r.byConn[conn.ID()] = joined
	}
	joined[conversationID] = struct{}{}
	return nil
}

// Leave unsubscribes a connection from a room. Leaving a room the
// connection never joined is a no-op.
func (r *Rooms) Leave(conn Conn, conversationID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(conn, conversationID)
}

// LeaveAll unsubscribes a connection from every room it joined. Called on
// disconnect; idempotent.
func (r *Rooms) LeaveAll(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for conversationID := range r.byConn[conn.ID()] {
		r.leaveLocked(conn, conversationID)
	}
	delete(r.byConn, conn.ID())
}

func (r *Rooms) leaveLocked(conn Conn, conversationID uuid.UUID) {
	if subs, ok := r.subscribers[conversationID]; ok {
		delete(subs, conn.ID())
		if len(subs) == 0 {
			delete(r.subscribers, conversationID)
		}
	}
	if joined, ok := r.byConn[conn.ID()]; ok {
		delete(joined, conversationID)
		if len(joined) == 0 {
			delete(r.byConn, conn.ID())
		}
	}
}

// Broadcast delivers a frame to every connection currently subscribed to
// the room, except the optional excluded one. The fan-out is a single
// synchronous pass, so all subscribers observe one room's broadcasts in the
// order they were issued.
func (r *Rooms) Broadcast(conversationID uuid.UUID, data []byte, exclude Conn) {
	r.mu.RLock()
	subs := r.subscribers[conversationID]
	conns := make([]Conn, 0, len(subs))
	for _, c := range subs {
		if exclude != nil && c.ID() == exclude.ID() {
			continue
		}
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	for _, c := range conns {
		if err := c.Send(data); err != nil {
			// Dead receiver; close it outside the fan-out path.
			go c.Close()
			continue
		}
		metrics.BroadcastsDelivered.Inc()
	}
}

// IsSubscribed reports whether a connection is currently in a room.
func (r *Rooms) IsSubscribed(conn Conn, conversationID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.subscribers[conversationID][conn.ID()]
	return ok
}

// Subscribers returns a snapshot of the room's current connections.
func (r *Rooms) Subscribers(conversationID uuid.UUID) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.subscribers[conversationID]
	conns := make([]Conn, 0, len(subs))
	for _, c := range subs {
		conns = append(conns, c)
	}
	return conns
}

// Count returns the number of rooms with at least one subscriber.
func (r *Rooms) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers)
}
