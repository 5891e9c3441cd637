package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"relentless-autoscout/internal/models"
)

// DefaultStatusPrefix namespaces crawl status keys.
const DefaultStatusPrefix = "autoscout:crawl:status:"

type redisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisStatusStore stores crawl status in Redis.
type RedisStatusStore struct {
	client redisClient
	prefix string
	ttl    time.Duration
}

// NewRedisStatusStore initializes a Redis-backed StatusStore.
func NewRedisStatusStore(addr, prefix string, ttl time.Duration) *RedisStatusStore {
	return newRedisStatusStore(redis.NewClient(&redis.Options{Addr: addr}), prefix, ttl)
}

func newRedisStatusStore(client redisClient, prefix string, ttl time.Duration) *RedisStatusStore {
	if prefix == "" {
		prefix = DefaultStatusPrefix
	}
	return &RedisStatusStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Ping checks connectivity.
func (s *RedisStatusStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisStatusStore) Close() error {
	return s.client.Close()
}

// SetStatus writes the status record to Redis.
func (s *RedisStatusStore) SetStatus(ctx context.Context, status models.CrawlStatus) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return err
	}
	key := s.prefix + status.SessionID
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("set status %s: %w", status.SessionID, err)
	}
	return nil
}

// GetStatus reads the status record from Redis.
func (s *RedisStatusStore) GetStatus(ctx context.Context, sessionID string) (models.CrawlStatus, bool, error) {
	key := s.prefix + sessionID
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.CrawlStatus{}, false, nil
		}
		return models.CrawlStatus{}, false, err
	}

	var status models.CrawlStatus
	if err := json.Unmarshal([]byte(val), &status); err != nil {
		return models.CrawlStatus{}, false, err
	}

	return status, true, nil
}
