package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dshuvalov/jumper-challenge/core"
	"github.com/dshuvalov/jumper-challenge/ports"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces session keys
const DefaultRedisPrefix = "jumper:session:"

// RedisStore is a Redis implementation of the SessionStore interface
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client) ports.SessionStore {
	return &RedisStore{
		client: client,
		prefix: DefaultRedisPrefix,
	}
}

// Get loads the session stored under id
func (s *RedisStore) Get(ctx context.Context, id string) (*core.Session, error) {
	payload, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w: %w", core.ErrStoreOperationFailed, err)
	}

	var session core.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w: %w", core.ErrStoreOperationFailed, err)
	}

	return &session, nil
}

// Set stores the session with expiration
func (s *RedisStore) Set(ctx context.Context, id string, session *core.Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w: %w", core.ErrStoreOperationFailed, err)
	}

	if err := s.client.Set(ctx, s.prefix+id, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w: %w", core.ErrStoreOperationFailed, err)
	}

	return nil
}

// Delete removes the session key
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.prefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w: %w", core.ErrStoreOperationFailed, err)
	}

	return nil
}

// Ping checks connectivity to Redis
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}
