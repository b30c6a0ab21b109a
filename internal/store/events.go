package store

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

const eventKeyPrefix = "marketplace:webhook:event:"

// RedisEventLog remembers processed webhook event ids for ttl.
type RedisEventLog struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisEventLog(client *redis.Client, ttl time.Duration) *RedisEventLog {
	return &RedisEventLog{client: client, ttl: ttl}
}

// NewRedisClient parses redisURL and checks the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (l *RedisEventLog) MarkProcessed(ctx context.Context, id string) (bool, error) {
	ok, err := l.client.SetNX(ctx, eventKeyPrefix+id, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark webhook event %s: %w", id, err)
	}
	return ok, nil
}

// Forget drops a processed marker so a failed event can be redelivered.
func (l *RedisEventLog) Forget(ctx context.Context, id string) error {
	return l.client.Del(ctx, eventKeyPrefix+id).Err()
}

// MemoryEventLog is the single-process EventLog used when no Redis is
// configured. Markers are lost on restart.
type MemoryEventLog struct {
	cache *cache.Cache
}

func NewMemoryEventLog(ttl time.Duration) *MemoryEventLog {
	return &MemoryEventLog{cache: cache.New(ttl, 10*time.Minute)}
}

func (l *MemoryEventLog) MarkProcessed(_ context.Context, id string) (bool, error) {
	// Add fails when the key is already present and unexpired.
	if err := l.cache.Add(eventKeyPrefix+id, time.Now().UTC(), cache.DefaultExpiration); err != nil {
		return false, nil
	}
	return true, nil
}

func (l *MemoryEventLog) Forget(_ context.Context, id string) error {
	l.cache.Delete(eventKeyPrefix + id)
	return nil
}
