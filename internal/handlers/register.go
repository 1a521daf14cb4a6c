package handlers

import (
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/auth"
)

const defaultTokenTTL = 30 * 24 * time.Hour

// usernameRegex keeps usernames URL and log friendly.
var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.\-]{3,32}$`)

// emailRegex validates email addresses per RFC 5322 (simplified).
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// RegisterResponse represents the registration response. The token is shown
// exactly once; only its hash is stored.
type RegisterResponse struct {
	ID    uuid.UUID `json:"id"`
	Token string    `json:"token"`
}

// Register handles user registration and issues the initial bearer token.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if !usernameRegex.MatchString(req.Username) {
		h.Error(w, http.StatusBadRequest, "username must be 3-32 characters of letters, digits, '_', '.' or '-'")
		return
	}
	if !isValidEmail(req.Email) {
		h.Error(w, http.StatusBadRequest, "invalid email format")
		return
	}

	existing, err := h.db.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if existing != nil {
		h.Error(w, http.StatusConflict, "username already taken")
		return
	}

	user, err := h.db.CreateUser(r.Context(), req.Username, req.Email)
	if err != nil {
		h.logger.Error().Err(err).Str("username", req.Username).Msg("create user failed")
		h.Error(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	token, err := auth.Mint(r.Context(), h.db, user.ID, defaultTokenTTL)
	if err != nil {
		h.logger.Error().Err(err).Stringer("user_id", user.ID).Msg("token mint failed")
		h.Error(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	h.JSON(w, http.StatusCreated, RegisterResponse{ID: user.ID, Token: token})
}

// isValidEmail validates email addresses using RFC 5322 pattern. Empty is
// valid since the field is optional.
func isValidEmail(email string) bool {
	if email == "" {
		return true
	}
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}
