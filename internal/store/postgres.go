package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateUser inserts a new user.
func (s *PostgresStore) CreateUser(ctx context.Context, username, email string) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, email)
		VALUES ($1, $2)
		RETURNING id, username, email, profile_pic, status, is_online, last_seen, created_at, updated_at
	`, username, email).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.ProfilePic,
		&user.Status,
		&user.IsOnline,
		&user.LastSeen,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by ID.
func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, email, profile_pic, status, is_online, last_seen, created_at, updated_at
		FROM users WHERE id = $1
	`, id).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.ProfilePic,
		&user.Status,
		&user.IsOnline,
		&user.LastSeen,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, email, profile_pic, status, is_online, last_seen, created_at, updated_at
		FROM users WHERE username = $1
	`, username).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.ProfilePic,
		&user.Status,
		&user.IsOnline,
		&user.LastSeen,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// UpdateUserPresence records a presence transition for a user.
func (s *PostgresStore) UpdateUserPresence(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE users SET is_online = $2, last_seen = $3, updated_at = NOW() WHERE id = $1
	`, id, online, lastSeen)
	return err
}

// CreateAPIToken stores a new bearer token for a user. Only the bcrypt hash
// of the token secret is persisted.
func (s *PostgresStore) CreateAPIToken(ctx context.Context, userID uuid.UUID, secretHash string, expiresAt time.Time) (*models.APIToken, error) {
	token := &models.APIToken{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO api_tokens (user_id, secret_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, secret_hash, created_at, expires_at
	`, userID, secretHash, expiresAt).Scan(
		&token.ID,
		&token.UserID,
		&token.SecretHash,
		&token.CreatedAt,
		&token.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return token, nil
}

// GetAPIToken retrieves a token by ID.
func (s *PostgresStore) GetAPIToken(ctx context.Context, id uuid.UUID) (*models.APIToken, error) {
	token := &models.APIToken{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, secret_hash, created_at, expires_at
		FROM api_tokens WHERE id = $1
	`, id).Scan(
		&token.ID,
		&token.UserID,
		&token.SecretHash,
		&token.CreatedAt,
		&token.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return token, nil
}

// CreateConversation creates a conversation and its participant rows in one
// transaction.
func (s *PostgresStore) CreateConversation(ctx context.Context, participants []uuid.UUID, isGroup bool, name string, admin *uuid.UUID) (*models.Conversation, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	conv := &models.Conversation{}
	err = tx.QueryRow(ctx, `
		INSERT INTO conversations (is_group, name, group_admin)
		VALUES ($1, $2, $3)
		RETURNING id, is_group, name, group_admin, created_at, last_active_at
	`, isGroup, name, admin).Scan(
		&conv.ID,
		&conv.IsGroup,
		&conv.Name,
		&conv.GroupAdmin,
		&conv.CreatedAt,
		&conv.LastActiveAt,
	)
	if err != nil {
		return nil, err
	}

	for _, p := range participants {
		if _, err := tx.Exec(ctx, `
			INSERT INTO conversation_participants (conversation_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, conv.ID, p); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	conv.Participants = participants
	return conv, nil
}

// GetConversation retrieves a conversation with its participant set.
func (s *PostgresStore) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	conv := &models.Conversation{}
	var lastMessageID *string
	err := s.pool.QueryRow(ctx, `
		SELECT id, is_group, name, group_admin, last_message_id, created_at, last_active_at
		FROM conversations WHERE id = $1
	`, id).Scan(
		&conv.ID,
		&conv.IsGroup,
		&conv.Name,
		&conv.GroupAdmin,
		&lastMessageID,
		&conv.CreatedAt,
		&conv.LastActiveAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if lastMessageID != nil {
		conv.LastMessageID = *lastMessageID
	}

	conv.Participants, err = s.GetParticipants(ctx, id)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// GetParticipants retrieves the participant user IDs of a conversation.
func (s *PostgresStore) GetParticipants(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id FROM conversation_participants WHERE conversation_id = $1
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		participants = append(participants, id)
	}
	return participants, rows.Err()
}

// ListConversationsForUser retrieves a user's conversations, most recently
// active first.
func (s *PostgresStore) ListConversationsForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Conversation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.is_group, c.name, c.group_admin, c.last_message_id, c.created_at, c.last_active_at
		FROM conversations c
		JOIN conversation_participants cp ON cp.conversation_id = c.id
		WHERE cp.user_id = $1
		ORDER BY c.last_active_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		var conv models.Conversation
		var lastMessageID *string
		err := rows.Scan(
			&conv.ID,
			&conv.IsGroup,
			&conv.Name,
			&conv.GroupAdmin,
			&lastMessageID,
			&conv.CreatedAt,
			&conv.LastActiveAt,
		)
		if err != nil {
			return nil, err
		}
		if lastMessageID != nil {
			conv.LastMessageID = *lastMessageID
		}
		conversations = append(conversations, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range conversations {
		conversations[i].Participants, err = s.GetParticipants(ctx, conversations[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return conversations, nil
}

// UpdateConversationLastMessage updates the last-message pointer and activity
// timestamp.
func (s *PostgresStore) UpdateConversationLastMessage(ctx context.Context, conversationID uuid.UUID, messageID string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE conversations SET last_message_id = $2, last_active_at = $3 WHERE id = $1
	`, conversationID, messageID, at)
	return err
}

// CreateMessage persists a new message, assigning a ULID and timestamp when
// unset.
func (s *PostgresStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, content, media_ref, edited, deleted, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, msg.ID, msg.ConversationID, msg.SenderID, msg.Content, msg.MediaRef, msg.Edited, msg.Deleted, msg.Timestamp)
	return err
}

// GetMessage retrieves a message and its read-set by ID.
func (s *PostgresStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	msg := &models.Message{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, conversation_id, sender_id, content, media_ref, edited, deleted, ts
		FROM messages WHERE id = $1
	`, id).Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.SenderID,
		&msg.Content,
		&msg.MediaRef,
		&msg.Edited,
		&msg.Deleted,
		&msg.Timestamp,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	msg.ReadBy, err = s.readSet(ctx, id)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// readSet loads the read receipts of a message.
func (s *PostgresStore) readSet(ctx context.Context, messageID string) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id FROM message_reads WHERE message_id = $1
	`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readers []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		readers = append(readers, id)
	}
	return readers, rows.Err()
}

// ListMessages retrieves messages from a conversation, newest first. A
// non-zero before bounds the result to strictly older messages.
func (s *PostgresStore) ListMessages(ctx context.Context, conversationID uuid.UUID, limit int, before int64) ([]models.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, media_ref, edited, deleted, ts
		FROM messages
		WHERE conversation_id = $1
	`
	args := []any{conversationID}
	if before > 0 {
		query += ` AND ts < $2 ORDER BY ts DESC LIMIT $3`
		args = append(args, before, limit)
	} else {
		query += ` ORDER BY ts DESC LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.SenderID,
			&msg.Content,
			&msg.MediaRef,
			&msg.Edited,
			&msg.Deleted,
			&msg.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// UpdateMessageContent replaces a message's content and flags it edited.
func (s *PostgresStore) UpdateMessageContent(ctx context.Context, id, content string) (*models.Message, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE messages SET content = $2, edited = TRUE WHERE id = $1 AND deleted = FALSE
	`, id, content)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return s.GetMessage(ctx, id)
}

// MarkMessageDeleted soft-deletes a message. The row stays; content is
// blanked.
func (s *PostgresStore) MarkMessageDeleted(ctx context.Context, id string) (*models.Message, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE messages SET deleted = TRUE, content = '', media_ref = '' WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return s.GetMessage(ctx, id)
}

// AppendReadReceipt adds a user to a message's read-set. Re-adding an
// existing reader is a no-op, so the set only ever grows.
func (s *PostgresStore) AppendReadReceipt(ctx context.Context, messageID string, userID uuid.UUID) (*models.Message, error) {
	msg, err := s.GetMessage(ctx, messageID)
	if err != nil || msg == nil {
		return nil, err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO message_reads (message_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, messageID, userID)
	if err != nil {
		return nil, err
	}
	return s.GetMessage(ctx, messageID)
}
