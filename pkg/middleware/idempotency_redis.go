package middleware

import (
	"carrental/pkg/logger"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisIdempotencyPrefix = "carrental:idempotency:"

// RedisIdempotencyStore shares cached responses between replicas. Redis
// failures degrade to a cache miss.
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
	now    func() time.Time
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{
		client: client,
		ttl:    ttl,
		log:    log,
		now:    time.Now,
	}
}

func redisIdempotencyKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return redisIdempotencyPrefix + hex.EncodeToString(sum[:])
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*CachedResponse, bool) {
	data, err := s.client.Get(ctx, redisIdempotencyKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		s.log.Warn("idempotency lookup failed", "store", "redis", "error", err)
		return nil, false
	}

	var cached CachedResponse
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		s.log.Warn("idempotency entry is corrupt", "store", "redis", "error", err)
		return nil, false
	}
	return &cached, true
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key string, response *CachedResponse) {
	response.CreatedAt = s.now().UTC()

	data, err := json.Marshal(response)
	if err != nil {
		s.log.Warn("failed to encode idempotency entry", "store", "redis", "error", err)
		return
	}

	if err := s.client.Set(ctx, redisIdempotencyKey(key), string(data), s.ttl).Err(); err != nil {
		s.log.Warn("failed to store idempotency entry", "store", "redis", "error", err)
	}
}

// Stop is a no-op; the Redis client is closed with the other clients.
func (s *RedisIdempotencyStore) Stop() {}
