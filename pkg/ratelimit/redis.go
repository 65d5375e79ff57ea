package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps timestamp windows in a Redis sorted set per key,
// scored by unix milliseconds, so multiple server instances share one
// window. Drop-in replacement for MemoryStore behind the Store
// interface.
type RedisStore struct {
	client *redis.Client
	// keyPrefix separates this application's limiter keys in a shared
	// Redis database.
	keyPrefix string
}

// NewRedisStore creates a store over an existing Redis client.
func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "ratelimit"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

// Take implements Store using ZREMRANGEBYSCORE + ZCARD + ZADD. The
// prune and count run in one pipeline; the small race between count
// and add can admit a brief overshoot across instances, which is
// acceptable for login throttling.
func (s *RedisStore) Take(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (Decision, error) {
	rkey := s.keyPrefix + ":" + key
	nowMs := now.UnixMilli()
	cutoff := strconv.FormatInt(now.Add(-window).UnixMilli(), 10)

	pipe := s.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, rkey, "-inf", cutoff)
	card := pipe.ZCard(ctx, rkey)
	oldest := pipe.ZRangeWithScores(ctx, rkey, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("redis take: %w", err)
	}

	count := int(card.Val())
	if count >= limit {
		d := Decision{Allowed: false, Count: count}
		if entries := oldest.Val(); len(entries) > 0 {
			d.Oldest = time.UnixMilli(int64(entries[0].Score))
		}
		return d, nil
	}

	member := strconv.FormatInt(nowMs, 10) + ":" + strconv.FormatInt(now.UnixNano(), 10)
	pipe = s.client.Pipeline()
	pipe.ZAdd(ctx, rkey, redis.Z{Score: float64(nowMs), Member: member})
	pipe.Expire(ctx, rkey, window)
	first := pipe.ZRangeWithScores(ctx, rkey, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("redis take: %w", err)
	}

	d := Decision{Allowed: true, Count: count + 1}
	if entries := first.Val(); len(entries) > 0 {
		d.Oldest = time.UnixMilli(int64(entries[0].Score))
	}
	return d, nil
}

// Reset implements Store.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.keyPrefix+":"+key).Err()
}
