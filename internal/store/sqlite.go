package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/models"
)

// SQLiteStore handles SQLite database operations. It exists so the server can
// run without external infrastructure in development.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/chatwave.db".
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/chatwave.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		profile_pic TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		is_online INTEGER NOT NULL DEFAULT 0,
		last_seen DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS api_tokens (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		secret_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		expires_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		is_group INTEGER NOT NULL DEFAULT 0,
		name TEXT NOT NULL DEFAULT '',
		group_admin TEXT,
		last_message_id TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		last_active_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS conversation_participants (
		conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		PRIMARY KEY (conversation_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		sender_id TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		media_ref TEXT NOT NULL DEFAULT '',
		edited INTEGER NOT NULL DEFAULT 0,
		deleted INTEGER NOT NULL DEFAULT 0,
		ts INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation_ts ON messages (conversation_id, ts DESC);

	CREATE TABLE IF NOT EXISTS message_reads (
		message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		read_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (message_id, user_id)
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateUser inserts a new user.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, email string) (*models.User, error) {
	now := time.Now().UTC()
	user := &models.User{
		ID:        uuid.New(),
		Username:  username,
		Email:     email,
		LastSeen:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, last_seen, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, user.ID.String(), username, email, now, now, now)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	var rawID string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, profile_pic, status, is_online, last_seen, created_at, updated_at
		FROM users WHERE id = ?
	`, id.String()).Scan(
		&rawID,
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
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	user.ID, err = uuid.Parse(rawID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	var rawID string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, profile_pic, status, is_online, last_seen, created_at, updated_at
		FROM users WHERE username = ?
	`, username).Scan(
		&rawID,
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
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	user.ID, err = uuid.Parse(rawID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUserPresence records a presence transition for a user.
func (s *SQLiteStore) UpdateUserPresence(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET is_online = ?, last_seen = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, online, lastSeen, id.String())
	return err
}

// CreateAPIToken stores a new bearer token for a user.
func (s *SQLiteStore) CreateAPIToken(ctx context.Context, userID uuid.UUID, secretHash string, expiresAt time.Time) (*models.APIToken, error) {
	token := &models.APIToken{
		ID:         uuid.New(),
		UserID:     userID,
		SecretHash: secretHash,
		CreatedAt:  time.Now().UTC(),
		ExpiresAt:  expiresAt,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_tokens (id, user_id, secret_hash, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, token.ID.String(), userID.String(), secretHash, token.CreatedAt, expiresAt)
	if err != nil {
		return nil, err
	}
	return token, nil
}

// GetAPIToken retrieves a token by ID.
func (s *SQLiteStore) GetAPIToken(ctx context.Context, id uuid.UUID) (*models.APIToken, error) {
	token := &models.APIToken{}
	var rawID, rawUserID string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, secret_hash, created_at, expires_at
		FROM api_tokens WHERE id = ?
	`, id.String()).Scan(
		&rawID,
		&rawUserID,
		&token.SecretHash,
		&token.CreatedAt,
		&token.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if token.ID, err = uuid.Parse(rawID); err != nil {
		return nil, err
	}
	if token.UserID, err = uuid.Parse(rawUserID); err != nil {
		return nil, err
	}
	return token, nil
}

// CreateConversation creates a conversation and its participant rows.
func (s *SQLiteStore) CreateConversation(ctx context.Context, participants []uuid.UUID, isGroup bool, name string, admin *uuid.UUID) (*models.Conversation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	conv := &models.Conversation{
		ID:           uuid.New(),
		Participants: participants,
		IsGroup:      isGroup,
		Name:         name,
		GroupAdmin:   admin,
		CreatedAt:    now,
		LastActiveAt: now,
	}

	var adminStr *string
	if admin != nil {
		v := admin.String()
		adminStr = &v
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (id, is_group, name, group_admin, created_at, last_active_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, conv.ID.String(), isGroup, name, adminStr, now, now)
	if err != nil {
		return nil, err
	}

	for _, p := range participants {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO conversation_participants (conversation_id, user_id)
			VALUES (?, ?)
		`, conv.ID.String(), p.String()); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return conv, nil
}

// GetConversation retrieves a conversation with its participant set.
func (s *SQLiteStore) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	conv := &models.Conversation{}
	var rawID string
	var rawAdmin, lastMessageID *string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, is_group, name, group_admin, last_message_id, created_at, last_active_at
		FROM conversations WHERE id = ?
	`, id.String()).Scan(
		&rawID,
		&conv.IsGroup,
		&conv.Name,
		&rawAdmin,
		&lastMessageID,
		&conv.CreatedAt,
		&conv.LastActiveAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if conv.ID, err = uuid.Parse(rawID); err != nil {
		return nil, err
	}
	if rawAdmin != nil {
		admin, err := uuid.Parse(*rawAdmin)
		if err != nil {
			return nil, err
		}
		conv.GroupAdmin = &admin
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
func (s *SQLiteStore) GetParticipants(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM conversation_participants WHERE conversation_id = ?
	`, conversationID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		participants = append(participants, id)
	}
	return participants, rows.Err()
}

// ListConversationsForUser retrieves a user's conversations, most recently
// active first.
func (s *SQLiteStore) ListConversationsForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id FROM conversations c
		JOIN conversation_participants cp ON cp.conversation_id = c.id
		WHERE cp.user_id = ?
		ORDER BY c.last_active_at DESC
		LIMIT ? OFFSET ?
	`, userID.String(), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	conversations := make([]models.Conversation, 0, len(ids))
	for _, id := range ids {
		conv, err := s.GetConversation(ctx, id)
		if err != nil {
			return nil, err
		}
		if conv != nil {
			conversations = append(conversations, *conv)
		}
	}
	return conversations, nil
}

// UpdateConversationLastMessage updates the last-message pointer and activity
// timestamp.
func (s *SQLiteStore) UpdateConversationLastMessage(ctx context.Context, conversationID uuid.UUID, messageID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET last_message_id = ?, last_active_at = ? WHERE id = ?
	`, messageID, at, conversationID.String())
	return err
}

// CreateMessage persists a new message, assigning a ULID and timestamp when
// unset.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, content, media_ref, edited, deleted, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.ConversationID.String(), msg.SenderID.String(), msg.Content, msg.MediaRef, msg.Edited, msg.Deleted, msg.Timestamp)
	return err
}

// GetMessage retrieves a message and its read-set by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	msg := &models.Message{}
	var rawConv, rawSender string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, sender_id, content, media_ref, edited, deleted, ts
		FROM messages WHERE id = ?
	`, id).Scan(
		&msg.ID,
		&rawConv,
		&rawSender,
		&msg.Content,
		&msg.MediaRef,
		&msg.Edited,
		&msg.Deleted,
		&msg.Timestamp,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if msg.ConversationID, err = uuid.Parse(rawConv); err != nil {
		return nil, err
	}
	if msg.SenderID, err = uuid.Parse(rawSender); err != nil {
		return nil, err
	}

	readRows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM message_reads WHERE message_id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	defer readRows.Close()

	for readRows.Next() {
		var raw string
		if err := readRows.Scan(&raw); err != nil {
			return nil, err
		}
		reader, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		msg.ReadBy = append(msg.ReadBy, reader)
	}
	return msg, readRows.Err()
}

// ListMessages retrieves messages from a conversation, newest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID uuid.UUID, limit int, before int64) ([]models.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, media_ref, edited, deleted, ts
		FROM messages WHERE conversation_id = ?
	`
	args := []any{conversationID.String()}
	if before > 0 {
		query += ` AND ts < ?`
		args = append(args, before)
	}
	query += ` ORDER BY ts DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		var rawConv, rawSender string
		err := rows.Scan(
			&msg.ID,
			&rawConv,
			&rawSender,
			&msg.Content,
			&msg.MediaRef,
			&msg.Edited,
			&msg.Deleted,
			&msg.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		if msg.ConversationID, err = uuid.Parse(rawConv); err != nil {
			return nil, err
		}
		if msg.SenderID, err = uuid.Parse(rawSender); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// UpdateMessageContent replaces a message's content and flags it edited.
func (s *SQLiteStore) UpdateMessageContent(ctx context.Context, id, content string) (*models.Message, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET content = ?, edited = 1 WHERE id = ? AND deleted = 0
	`, content, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetMessage(ctx, id)
}

// MarkMessageDeleted soft-deletes a message.
func (s *SQLiteStore) MarkMessageDeleted(ctx context.Context, id string) (*models.Message, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET deleted = 1, content = '', media_ref = '' WHERE id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetMessage(ctx, id)
}

// AppendReadReceipt adds a user to a message's read-set, idempotently.
func (s *SQLiteStore) AppendReadReceipt(ctx context.Context, messageID string, userID uuid.UUID) (*models.Message, error) {
	msg, err := s.GetMessage(ctx, messageID)
	if err != nil || msg == nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO message_reads (message_id, user_id) VALUES (?, ?)
	`, messageID, userID.String())
	if err != nil {
		return nil, err
	}
	return s.GetMessage(ctx, messageID)
}
