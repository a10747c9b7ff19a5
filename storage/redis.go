package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/redis/go-redis/v9"
	"github.com/ruteri/ondc-onboarding-service/interfaces"
)

// DefaultRedisHashKey is the hash holding all key records when the location
// URI does not name one.
const DefaultRedisHashKey = "ondc:keys"

// RedisBackend implements a storage backend on a single Redis hash: every
// record is one field, so listing is a single HKEYS.
type RedisBackend struct {
	client      redis.UniversalClient
	hashKey     string
	log         *slog.Logger
	locationURI string
}

// NewRedisBackend connects to Redis using a redis:// or rediss:// URL.
func NewRedisBackend(ctx context.Context, redisURL, hashKey string, log *slog.Logger) (*RedisBackend, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: redis ping failed: %v", interfaces.ErrBackendUnavailable, err)
	}

	return NewRedisBackendWithClient(client, hashKey, redactRedisURL(redisURL), log), nil
}

// NewRedisBackendWithClient wraps an existing client.
func NewRedisBackendWithClient(client redis.UniversalClient, hashKey, locationURI string, log *slog.Logger) *RedisBackend {
	if hashKey == "" {
		hashKey = DefaultRedisHashKey
	}
	return &RedisBackend{
		client:      client,
		hashKey:     hashKey,
		log:         log,
		locationURI: locationURI,
	}
}

// Fetch reads a record field from the hash.
func (b *RedisBackend) Fetch(ctx context.Context, key string) ([]byte, error) {
	data, err := b.client.HGet(ctx, b.hashKey, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, interfaces.ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	return data, nil
}

// Store writes a record field.
func (b *RedisBackend) Store(ctx context.Context, key string, data []byte) error {
	if err := b.client.HSet(ctx, b.hashKey, key, data).Err(); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	b.log.Debug("Stored record in Redis", slog.String("hash", b.hashKey), slog.String("key", key))
	return nil
}

// Delete removes a record field.
func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	n, err := b.client.HDel(ctx, b.hashKey, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	if n == 0 {
		return interfaces.ErrContentNotFound
	}
	return nil
}

// List returns all record names in the hash.
func (b *RedisBackend) List(ctx context.Context) ([]string, error) {
	names, err := b.client.HKeys(ctx, b.hashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	return names, nil
}

// Available pings the Redis server.
func (b *RedisBackend) Available(ctx context.Context) bool {
	if err := b.client.Ping(ctx).Err(); err != nil {
		b.log.Warn("Redis backend unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *RedisBackend) Name() string {
	return fmt.Sprintf("redis-%s", b.hashKey)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *RedisBackend) LocationURI() string {
	return b.locationURI
}

// Close releases the underlying connection pool.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func redactRedisURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "redis://"
	}
	return u.Redacted()
}
