package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/api/middleware"
	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/models"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// CreateConversationRequest is the body for POST /api/conversations.
type CreateConversationRequest struct {
	ParticipantIDs []uuid.UUID `json:"participantIds"`
	IsGroup        bool        `json:"isGroup"`
	Name           string      `json:"name,omitempty"`
}

// ConversationResponse is a conversation plus the caller's unread count.
type ConversationResponse struct {
	models.Conversation
	UnreadCount int64 `json:"unreadCount"`
}

// CreateConversation handles POST /api/conversations. The caller is always a
// participant; a direct conversation has exactly two.
func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req CreateConversationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	participants := dedupe(append(req.ParticipantIDs, user.ID))
	if req.IsGroup {
		if len(participants) < 2 {
			h.Error(w, http.StatusBadRequest, "group conversation needs at least 2 participants")
			return
		}
		req.Name = sanitizeName(req.Name)
		if req.Name == "" {
			h.Error(w, http.StatusBadRequest, "group conversation needs a name")
			return
		}
	} else {
		if len(participants) != 2 {
			h.Error(w, http.StatusBadRequest, "direct conversation needs exactly 2 participants")
			return
		}
		req.Name = ""
	}

	var admin *uuid.UUID
	if req.IsGroup {
		admin = &user.ID
	}

	conv, err := h.db.CreateConversation(r.Context(), participants, req.IsGroup, req.Name, admin)
	if err != nil {
		h.logger.Error().Err(err).Msg("create conversation failed")
		h.Error(w, http.StatusInternalServerError, "failed to create conversation")
		return
	}

	if h.redis != nil {
		if err := h.redis.CacheParticipants(r.Context(), conv.ID, conv.Participants); err != nil {
			h.logger.Warn().Err(err).Stringer("conversation_id", conv.ID).Msg("participant cache write failed")
		}
	}

	h.JSON(w, http.StatusCreated, conv)
}

// ListConversations handles GET /api/conversations for the authenticated user.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit := queryInt(r, "limit", defaultPageSize, maxPageSize)
	offset := queryInt(r, "offset", 0, 1<<30)

	convs, err := h.db.ListConversationsForUser(r.Context(), user.ID, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("list conversations failed")
		h.Error(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}

	resp := make([]ConversationResponse, 0, len(convs))
	for _, c := range convs {
		item := ConversationResponse{Conversation: c}
		if h.redis != nil {
			if n, err := h.redis.UnreadCount(r.Context(), user.ID, c.ID); err == nil {
				item.UnreadCount = n
			}
		}
		resp = append(resp, item)
	}

	h.JSON(w, http.StatusOK, map[string]any{"conversations": resp})
}

// GetConversation handles GET /api/conversations/{id}.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid conversation ID")
		return
	}

	conv, err := h.db.GetConversation(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Stringer("conversation_id", id).Msg("get conversation failed")
		h.Error(w, http.StatusInternalServerError, "failed to get conversation")
		return
	}
	if conv == nil || !conv.HasParticipant(user.ID) {
		// Non-participants get the same answer as a missing conversation.
		h.Error(w, http.StatusNotFound, "conversation not found")
		return
	}

	h.JSON(w, http.StatusOK, conv)
}

// GetConversationMessages handles GET /api/conversations/{id}/messages.
// Recent pages are served from the Redis cache when possible; anything the
// cache cannot answer falls back to the database.
func (h *Handler) GetConversationMessages(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid conversation ID")
		return
	}

	conv, err := h.db.GetConversation(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Stringer("conversation_id", id).Msg("get conversation failed")
		h.Error(w, http.StatusInternalServerError, "failed to get conversation")
		return
	}
	if conv == nil || !conv.HasParticipant(user.ID) {
		h.Error(w, http.StatusNotFound, "conversation not found")
		return
	}

	limit := queryInt(r, "limit", defaultPageSize, maxPageSize)
	var before int64
	if v := r.URL.Query().Get("before"); v != "" {
		before, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.Error(w, http.StatusBadRequest, "invalid before timestamp")
			return
		}
	}

	var messages []models.Message
	cached := false
	if h.redis != nil {
		if msgs, err := h.redis.RecentMessages(r.Context(), id, limit, before); err == nil && len(msgs) > 0 {
			messages = msgs
			cached = true
		}
	}

	if !cached {
		messages, err = h.db.ListMessages(r.Context(), id, limit, before)
		if err != nil {
			h.logger.Error().Err(err).Stringer("conversation_id", id).Msg("list messages failed")
			h.Error(w, http.StatusInternalServerError, "failed to list messages")
			return
		}
	}

	h.JSON(w, http.StatusOK, map[string]any{
		"conversationId": id,
		"messages":       messages,
		"cached":         cached,
	})
}

// dedupe removes duplicate IDs while preserving order.
func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// queryInt parses an integer query parameter with a default and a cap.
func queryInt(r *http.Request, name string, def, max int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
