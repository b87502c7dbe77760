package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "topicguard:embedding:"

// RedisStore is a Store shared between processes through Redis. Entries
// expire after ttl; a zero ttl keeps them forever.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to addr and verifies the connection with PING.
func NewRedisStore(ctx context.Context, addr string, ttl time.Duration) (*RedisStore, error) {
	if addr == "" {
		return nil, fmt.Errorf("connect embedding cache: empty redis address")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect embedding cache %s: %w", addr, err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]float32, bool, error) {
	blob, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read embedding: %w", err)
	}
	vec, err := decodeVector(blob)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, vec []float32) error {
	if err := s.client.Set(ctx, redisKeyPrefix+key, encodeVector(vec), s.ttl).Err(); err != nil {
		return fmt.Errorf("write embedding: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
