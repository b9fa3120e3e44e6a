package staging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps staged items in Redis. Sessions survive a process restart
// and self-expire server-side even if the reaper never runs.
//
// Each session uses two keys: a marker key that records the session exists
// (so an opened-but-empty session is distinguishable from a missing one) and
// a list key holding the JSON-encoded items in attach order.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to Redis at redisURL and verifies the connection.
// ttl bounds how long an inactive session may live server-side.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 3 * time.Minute
	}
	return &RedisStore{
		client: client,
		prefix: "staging:",
		ttl:    ttl,
	}
}

func (s *RedisStore) markerKey(key string) string {
	return s.prefix + key
}

func (s *RedisStore) itemsKey(key string) string {
	return s.prefix + key + ":items"
}

// Open creates the session marker if it does not exist yet. SETNX keeps a
// double-invoked open from resetting the TTL clock on an in-progress session.
func (s *RedisStore) Open(ctx context.Context, key string) error {
	if err := s.client.SetNX(ctx, s.markerKey(key), 1, s.ttl).Err(); err != nil {
		return fmt.Errorf("open staging session: %w", err)
	}
	return nil
}

// Append pushes the item onto the session list and refreshes the TTL on both
// keys, so an active session stays alive.
func (s *RedisStore) Append(ctx context.Context, key string, item Item) error {
	exists, err := s.client.Exists(ctx, s.markerKey(key)).Result()
	if err != nil {
		return fmt.Errorf("check staging session: %w", err)
	}
	if exists == 0 {
		return ErrSessionNotFound
	}

	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal staged item: %w", err)
	}
	if err := s.client.RPush(ctx, s.itemsKey(key), raw).Err(); err != nil {
		return fmt.Errorf("append staged item: %w", err)
	}

	s.client.Expire(ctx, s.markerKey(key), s.ttl)
	s.client.Expire(ctx, s.itemsKey(key), s.ttl)
	return nil
}

// List returns the staged items in attach order.
func (s *RedisStore) List(ctx context.Context, key string) ([]Item, error) {
	exists, err := s.client.Exists(ctx, s.markerKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("check staging session: %w", err)
	}
	if exists == 0 {
		return nil, ErrSessionNotFound
	}

	raws, err := s.client.LRange(ctx, s.itemsKey(key), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list staged items: %w", err)
	}

	items := make([]Item, 0, len(raws))
	for _, raw := range raws {
		var item Item
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("decode staged item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Destroy deletes both session keys. DEL on missing keys is a no-op.
func (s *RedisStore) Destroy(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.markerKey(key), s.itemsKey(key)).Err(); err != nil {
		return fmt.Errorf("destroy staging session: %w", err)
	}
	return nil
}

// Ping checks if Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
