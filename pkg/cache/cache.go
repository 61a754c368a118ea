package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache TTLs. Conversation lists are rebroadcast on every mutation, so
// the cache only has to absorb read bursts between pushes.
const (
	TTLConversations = 30 * time.Second
	TTLUser          = 5 * time.Minute
	TTLDefault       = 1 * time.Minute
)

// Cache key prefixes
const (
	PrefixConversations = "convs:"
	PrefixUser          = "user:"
)

// Service Redis cache service interface
type Service interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	// Conversation-list projection cache, keyed by user
	GetConversations(ctx context.Context, userID string) ([]byte, error)
	SetConversations(ctx context.Context, userID string, data interface{}) error
	InvalidateConversations(ctx context.Context, userIDs ...string) error

	// User profile cache
	GetUser(ctx context.Context, userID string) ([]byte, error)
	SetUser(ctx context.Context, userID string, data interface{}) error
	InvalidateUser(ctx context.Context, userID string) error

	IsAvailable() bool
	Ping(ctx context.Context) error
}

// redisCache Redis-backed cache implementation
type redisCache struct {
	client *redis.Client
}

// NewService creates a new cache service
func NewService(client *redis.Client) Service {
	return &redisCache{client: client}
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *redisCache) GetConversations(ctx context.Context, userID string) ([]byte, error) {
	return c.client.Get(ctx, PrefixConversations+userID).Bytes()
}

func (c *redisCache) SetConversations(ctx context.Context, userID string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}
	return c.client.Set(ctx, PrefixConversations+userID, raw, TTLConversations).Err()
}

func (c *redisCache) InvalidateConversations(ctx context.Context, userIDs ...string) error {
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = PrefixConversations + id
	}
	return c.Delete(ctx, keys...)
}

func (c *redisCache) GetUser(ctx context.Context, userID string) ([]byte, error) {
	return c.client.Get(ctx, PrefixUser+userID).Bytes()
}

func (c *redisCache) SetUser(ctx context.Context, userID string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}
	return c.client.Set(ctx, PrefixUser+userID, raw, TTLUser).Err()
}

func (c *redisCache) InvalidateUser(ctx context.Context, userID string) error {
	return c.Delete(ctx, PrefixUser+userID)
}

func (c *redisCache) IsAvailable() bool {
	return c.client != nil
}

func (c *redisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
