package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Record holds the data stored for each session entry
type Record struct {
	CreatedAt time.Time `json:"created_at"`
}

// RedisStore implements the session registry using Redis key TTLs
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis-backed session registry
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{
		client: client,
		prefix: "composer:",
	}, nil
}

// NewRedisStoreWithClient creates a registry from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "composer:",
	}
}

// key generates the Redis key for a session id
func (s *RedisStore) key(sessionID string) string {
	return s.prefix + sessionID
}

// SaveSession registers a session with the given TTL
func (s *RedisStore) SaveSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	jsonData, err := json.Marshal(Record{CreatedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}

	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	if err := s.client.Set(ctx, s.key(sessionID), jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// TouchSession slides a live session's expiry forward. Returns false when
// the session has already expired or never existed.
func (s *RedisStore) TouchSession(ctx context.Context, sessionID string, ttl time.Duration) (bool, error) {
	alive, err := s.client.Expire(ctx, s.key(sessionID), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("touch session: %w", err)
	}
	return alive, nil
}

// LookupSession reports liveness without touching the TTL
func (s *RedisStore) LookupSession(ctx context.Context, sessionID string) (bool, error) {
	count, err := s.client.Exists(ctx, s.key(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("lookup session: %w", err)
	}
	return count > 0, nil
}

// RevokeSession deletes a session entry
func (s *RedisStore) RevokeSession(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
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
