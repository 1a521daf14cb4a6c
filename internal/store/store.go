package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/models"
)

// DataStore defines the interface for durable storage of users, conversations
// and messages. Both PostgresStore and SQLiteStore implement this interface.
// Lookups return (nil, nil) when the row does not exist.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// User operations
	CreateUser(ctx context.Context, username, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUserPresence(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error

	// Token operations
	CreateAPIToken(ctx context.Context, userID uuid.UUID, secretHash string, expiresAt time.Time) (*models.APIToken, error)
	GetAPIToken(ctx context.Context, id uuid.UUID) (*models.APIToken, error)

	// Conversation operations
	CreateConversation(ctx context.Context, participants []uuid.UUID, isGroup bool, name string, admin *uuid.UUID) (*models.Conversation, error)
	GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	GetParticipants(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error)
	ListConversationsForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Conversation, error)
	UpdateConversationLastMessage(ctx context.Context, conversationID uuid.UUID, messageID string, at time.Time) error

	// Message operations
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit int, before int64) ([]models.Message, error)
	UpdateMessageContent(ctx context.Context, id, content string) (*models.Message, error)
	MarkMessageDeleted(ctx context.Context, id string) (*models.Message, error)
	AppendReadReceipt(ctx context.Context, messageID string, userID uuid.UUID) (*models.Message, error)
}
