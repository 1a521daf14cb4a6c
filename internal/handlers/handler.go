package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/realtime"
	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	db       store.DataStore
	redis    *store.RedisStore
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHandler creates a new Handler with the given stores and hub.
func NewHandler(db store.DataStore, redis *store.RedisStore, hub *realtime.Hub, allowedOrigins []string, logger zerolog.Logger) *Handler {
	return &Handler{
		db:       db,
		redis:    redis,
		hub:      hub,
		upgrader: NewUpgrader(allowedOrigins),
		logger:   logger,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a request body, rejecting unknown fields.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// sanitizeName trims and limits a group name to 100 characters, removing
// control characters.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)

	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	// Truncate on rune boundaries so a multi-byte name stays valid UTF-8.
	if runes := []rune(name); len(runes) > 100 {
		name = string(runes[:100])
	}

	return name
}
