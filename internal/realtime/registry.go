package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Registry maps each authenticated user to their currently open connections.
// A user may hold several at once (tabs, devices). All operations are O(1)
// amortized and none of them block; the maps are the only state and are
// guarded by a single RWMutex.
type Registry struct {
	mu     sync.RWMutex
	byUser map[uuid.UUID]map[uuid.UUID]Conn // userID -> connID -> conn
	conns  map[uuid.UUID]Conn               // connID -> conn
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[uuid.UUID]map[uuid.UUID]Conn),
		conns:  make(map[uuid.UUID]Conn),
	}
}

// Register records a live connection. It reports whether this is the user's
// first live connection (the 0->1 presence edge).
func (r *Registry) Register(conn Conn) (first bool) {
	userID := conn.User().ID

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.byUser[userID]
	if !ok {
		set = make(map[uuid.UUID]Conn)
		r.byUser[userID] = set
	}
	set[conn.ID()] = conn
	r.conns[conn.ID()] = conn
	return len(set) == 1
}

// Deregister removes a connection. Unknown connections are a no-op, so
// cleanup paths may call it redundantly. removed reports whether this call
// took the connection out; last reports whether the user now has no live
// connections left (the 1->0 presence edge).
func (r *Registry) Deregister(conn Conn) (removed, last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[conn.ID()]; !ok {
		return false, false
	}
	delete(r.conns, conn.ID())

	userID := conn.User().ID
	set, ok := r.byUser[userID]
	if !ok {
		return true, false
	}
	delete(set, conn.ID())
	if len(set) == 0 {
		delete(r.byUser, userID)
		return true, true
	}
	return true, false
}

// ConnectionsOf returns a snapshot of a user's live connections.
func (r *Registry) ConnectionsOf(userID uuid.UUID) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byUser[userID]
	conns := make([]Conn, 0, len(set))
	for _, c := range set {
		conns = append(conns, c)
	}
	return conns
}

// IsOnline reports whether the user has at least one live connection.
func (r *Registry) IsOnline(userID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// Broadcast delivers a frame to every live connection except the excluded
// one. Used for system-wide presence announcements.
func (r *Registry) Broadcast(data []byte, exclude Conn) {
	r.mu.RLock()
	conns := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		if exclude != nil && c.ID() == exclude.ID() {
			continue
		}
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	for _, c := range conns {
		if err := c.Send(data); err != nil {
			go c.Close()
		}
	}
}

// Counts returns the number of live connections and distinct online users.
func (r *Registry) Counts() (conns, users int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns), len(r.byUser)
}
