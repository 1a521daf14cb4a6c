package handlers

import (
	"net/http"
	"time"
)

// StatsResponse represents the response from the stats endpoint.
type StatsResponse struct {
	Connections int    `json:"connections"`
	OnlineUsers int    `json:"online_users"`
	ActiveRooms int    `json:"active_rooms"`
	Timestamp   string `json:"timestamp"`
}

// Stats returns live hub statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	conns, users, rooms := h.hub.Stats()

	h.JSON(w, http.StatusOK, StatsResponse{
		Connections: conns,
		OnlineUsers: users,
		ActiveRooms: rooms,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}
