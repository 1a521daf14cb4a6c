package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/models"
)

const (
	recentMessagesTTL = 24 * time.Hour
	participantsTTL   = 5 * time.Minute
	recentMessagesCap = 500
)

// RedisStore handles Redis operations: the recent-message cache, the
// participant-set cache used by room joins, last-seen timestamps, and unread
// counters. Everything here is a derived cache; PostgreSQL stays the source
// of truth.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Client exposes the underlying client for middleware that needs raw Redis.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// recentMessagesKey returns the key for a conversation's message sorted set.
func recentMessagesKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:messages", conversationID)
}

// participantsKey returns the key for a conversation's cached participant set.
func participantsKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:participants", conversationID)
}

// lastSeenKey returns the key for a user's last-seen timestamp.
func lastSeenKey(userID string) string {
	return fmt.Sprintf("user:%s:lastseen", userID)
}

// unreadKey returns the key for a user's unread counter in a conversation.
func unreadKey(userID, conversationID string) string {
	return fmt.Sprintf("user:%s:unread:%s", userID, conversationID)
}

// CacheMessage stores a persisted message in the conversation's recent
// window, scored by timestamp.
func (s *RedisStore) CacheMessage(ctx context.Context, msg *models.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	key := recentMessagesKey(msg.ConversationID.String())

	pipe := s.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(msg.Timestamp),
		Member: string(data),
	})
	pipe.ZRemRangeByRank(ctx, key, 0, -(recentMessagesCap + 1))
	pipe.Expire(ctx, key, recentMessagesTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// InvalidateMessages drops a conversation's cached message window. The ZSET
// members are serialized snapshots, so an edit or soft delete cannot patch
// them in place; the next history read repopulates from the store.
func (s *RedisStore) InvalidateMessages(ctx context.Context, conversationID uuid.UUID) error {
	return s.client.Del(ctx, recentMessagesKey(conversationID.String())).Err()
}

// RecentMessages retrieves cached messages from a conversation, newest first.
// A non-zero before bounds the result to strictly older messages.
func (s *RedisStore) RecentMessages(ctx context.Context, conversationID uuid.UUID, limit int, before int64) ([]models.Message, error) {
	key := recentMessagesKey(conversationID.String())

	maxScore := "+inf"
	if before > 0 {
		maxScore = fmt.Sprintf("(%d", before) // exclusive
	}

	results, err := s.client.ZRevRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   maxScore,
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(results))
	for _, data := range results {
		var msg models.Message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// CacheParticipants stores a conversation's participant set with a short TTL.
func (s *RedisStore) CacheParticipants(ctx context.Context, conversationID uuid.UUID, participants []uuid.UUID) error {
	key := participantsKey(conversationID.String())
	members := make([]interface{}, len(participants))
	for i, p := range participants {
		members[i] = p.String()
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.SAdd(ctx, key, members...)
	pipe.Expire(ctx, key, participantsTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// CachedParticipants retrieves a conversation's cached participant set.
// Returns nil when the set is not cached.
func (s *RedisStore) CachedParticipants(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error) {
	key := participantsKey(conversationID.String())
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	participants := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		participants = append(participants, id)
	}
	return participants, nil
}

// SetLastSeen records a user's last-seen timestamp.
func (s *RedisStore) SetLastSeen(ctx context.Context, userID uuid.UUID, at time.Time) error {
	return s.client.Set(ctx, lastSeenKey(userID.String()), at.UnixMilli(), 0).Err()
}

// LastSeen retrieves a user's last-seen timestamp. The zero time is returned
// when none is recorded.
func (s *RedisStore) LastSeen(ctx context.Context, userID uuid.UUID) (time.Time, error) {
	ms, err := s.client.Get(ctx, lastSeenKey(userID.String())).Int64()
	if err != nil {
		if err == redis.Nil {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

// IncrementUnread bumps a user's unread counter for a conversation.
func (s *RedisStore) IncrementUnread(ctx context.Context, userID, conversationID uuid.UUID) error {
	return s.client.Incr(ctx, unreadKey(userID.String(), conversationID.String())).Err()
}

// ResetUnread clears a user's unread counter for a conversation.
func (s *RedisStore) ResetUnread(ctx context.Context, userID, conversationID uuid.UUID) error {
	return s.client.Del(ctx, unreadKey(userID.String(), conversationID.String())).Err()
}

// UnreadCount retrieves a user's unread counter for a conversation.
func (s *RedisStore) UnreadCount(ctx context.Context, userID, conversationID uuid.UUID) (int64, error) {
	count, err := s.client.Get(ctx, unreadKey(userID.String(), conversationID.String())).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}
