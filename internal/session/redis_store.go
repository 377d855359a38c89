package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"knowledgebase/internal/blocks"
)

const defaultTTL = 30 * 24 * time.Hour

// RedisStore implements Store using Redis. Every save refreshes the TTL, so
// state for documents a user stops opening eventually expires.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a new Redis-backed view state store
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, documentID, userID string) (blocks.ViewState, error) {
	raw, err := s.client.Get(ctx, key(documentID, userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return blocks.ViewState{}, nil
	}
	if err != nil {
		return blocks.ViewState{}, fmt.Errorf("load editor state: %w", err)
	}

	var state blocks.ViewState
	if err := json.Unmarshal(raw, &state); err != nil {
		return blocks.ViewState{}, fmt.Errorf("unmarshal editor state: %w", err)
	}
	return state, nil
}

func (s *RedisStore) Save(ctx context.Context, documentID, userID string, state blocks.ViewState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal editor state: %w", err)
	}
	if err := s.client.Set(ctx, key(documentID, userID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save editor state: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, documentID, userID string) error {
	if err := s.client.Del(ctx, key(documentID, userID)).Err(); err != nil {
		return fmt.Errorf("clear editor state: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
