package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// NewUpgrader builds the websocket upgrader with an origin allowlist. An
// empty list allows any origin, matching browserless clients and local
// development.
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// ServeWS handles GET /ws: upgrades the connection and hands it to the hub.
// The bearer token comes from the Authorization header or, for browser
// clients that cannot set headers on a websocket, the token query parameter.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		header := r.Header.Get("Authorization")
		token, _ = strings.CutPrefix(header, "Bearer ")
	}
	if token == "" {
		h.Error(w, http.StatusUnauthorized, "missing token")
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	// Open verifies the token and owns the socket from here, including the
	// close on auth failure.
	if _, err := h.hub.Open(r.Context(), ws, token); err != nil {
		h.logger.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("websocket handshake rejected")
	}
}
