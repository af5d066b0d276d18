package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sweetpotato0/mcpx-agents/message"
)

// RedisStore keeps each conversation as a Redis list of JSON messages.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisConfig holds Redis configuration for conversations.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// NewRedisStore creates a new Redis-based conversation store.
func NewRedisStore(config *RedisConfig) *RedisStore {
	if config == nil {
		config = &RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "mcpx:conversation:",
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	return NewRedisStoreWithClient(client, config.Prefix, config.TTL)
}

// NewRedisStoreWithClient wraps an existing client. A zero ttl keeps
// conversations forever.
func NewRedisStoreWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// Load reads the whole conversation in order.
func (s *RedisStore) Load(ctx context.Context, conversationID string) ([]*message.Message, error) {
	raw, err := s.client.LRange(ctx, s.key(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	msgs := make([]*message.Message, 0, len(raw))
	for _, item := range raw {
		msg, err := message.Unmarshal([]byte(item))
		if err != nil {
			return nil, fmt.Errorf("failed to decode conversation item: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Append pushes items atomically and refreshes the TTL.
func (s *RedisStore) Append(ctx context.Context, conversationID string, msgs ...*message.Message) error {
	if err := validateID(conversationID); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	values := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		raw, err := message.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal conversation item: %w", err)
		}
		values = append(values, raw)
	}

	key := s.key(conversationID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append conversation items: %w", err)
	}
	return nil
}

// Clear deletes the conversation.
func (s *RedisStore) Clear(ctx context.Context, conversationID string) error {
	if err := s.client.Del(ctx, s.key(conversationID)).Err(); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

// Ping checks if Redis connection is alive.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(conversationID string) string {
	return s.prefix + conversationID
}
