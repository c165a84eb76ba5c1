package handoff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of the go-redis client used by [RedisStore].
// *redis.Client satisfies it.
type RedisClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

const defaultKeyPrefix = "haulvoice:handoff:"

// RedisStore is a [Store] backed by Redis. Take uses GETDEL so the read and
// the delete are atomic across instances. Requires Redis 6.2 or newer.
type RedisStore struct {
	client RedisClient
	ttl    time.Duration
	prefix string
}

var (
	_ Store  = (*RedisStore)(nil)
	_ Pinger = (*RedisStore)(nil)
)

// NewRedisStore returns a RedisStore whose keys expire after ttl.
func NewRedisStore(client RedisClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, prefix: defaultKeyPrefix}
}

// Save implements [Store].
func (s *RedisStore) Save(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("handoff: redis save: %w", err)
	}
	return nil
}

// Take implements [Store].
func (s *RedisStore) Take(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.GetDel(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("handoff: redis take: %w", err)
	}
	return data, nil
}

// Ping implements [Pinger].
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close implements [Store].
func (s *RedisStore) Close() error {
	return s.client.Close()
}
