package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/realtime"
)

// PresenceResponse represents a user's presence state.
type PresenceResponse struct {
	UserID   uuid.UUID  `json:"userId"`
	Online   bool       `json:"online"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

// GetPresence handles GET /api/presence/{id}.
func (h *Handler) GetPresence(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	status, err := h.hub.Presence().StatusOf(r.Context(), id)
	if err != nil {
		if errors.Is(err, realtime.ErrNotFound) {
			h.Error(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error().Err(err).Stringer("user_id", id).Msg("presence lookup failed")
		h.Error(w, http.StatusInternalServerError, "presence lookup failed")
		return
	}

	resp := PresenceResponse{UserID: id, Online: status.Online}
	if !status.LastSeen.IsZero() {
		ls := status.LastSeen
		resp.LastSeen = &ls
	}

	h.JSON(w, http.StatusOK, resp)
}
