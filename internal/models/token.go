package models

import (
	"time"

	"github.com/google/uuid"
)

// APIToken is an opaque bearer credential issued to a user by the account
// service. Only the bcrypt hash of the secret half is stored.
type APIToken struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	SecretHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the token is past its expiry.
func (t *APIToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}
