package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered ChatWave user.
// Profile fields are owned by the account service; the realtime core only
// mutates IsOnline and LastSeen through the presence tracker.
type User struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email,omitempty"`
	ProfilePic string    `json:"profile_pic,omitempty"`
	Status     string    `json:"status,omitempty"`
	IsOnline   bool      `json:"is_online"`
	LastSeen   time.Time `json:"last_seen"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
