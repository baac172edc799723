package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend implements Backend backed by Redis (standalone or Sentinel).
// Each profile owns exactly one key.
type RedisBackend struct {
	client  redis.Cmdable
	prefix  string
	profile string
}

// NewRedisBackend creates a Redis-backed credential backend for one profile.
func NewRedisBackend(client redis.Cmdable, prefix, profile string) *RedisBackend {
	if prefix == "" {
		prefix = "ezcoins:credential:"
	}
	return &RedisBackend{client: client, prefix: prefix, profile: profile}
}

func (b *RedisBackend) key() string {
	return b.prefix + b.profile
}

// Load returns the stored credentials, or nil if the key is absent.
func (b *RedisBackend) Load(ctx context.Context) (*Credentials, error) {
	val, err := b.client.Get(ctx, b.key()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}

	var c Credentials
	if err := json.Unmarshal([]byte(val), &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}
	return &c, nil
}

// Save stores token and user id as one value, with no expiry.
func (b *RedisBackend) Save(ctx context.Context, c Credentials) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := b.client.Set(ctx, b.key(), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	return nil
}

// Delete removes the profile key.
func (b *RedisBackend) Delete(ctx context.Context) error {
	if err := b.client.Del(ctx, b.key()).Err(); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}

// Ping checks Redis connectivity.
func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
