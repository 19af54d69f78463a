package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Keyspace prefixes every read-cache entry. Sync locks and the job queue
// live outside it, so pattern invalidation never reaches them.
const Keyspace = "channeldesk:cache:"

const scanBatch = 100

// Redis is the go-redis client shared by the read cache, the sync lock and
// the sync queue.
type Redis struct {
	client *redis.Client
}

// New parses a Redis URL (e.g. "redis://host:6379/0"). Call Ping to verify
// the connection.
func New(rawURL string) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Redis{client: redis.NewClient(opts)}, nil
}

// Ping checks the connection to Redis.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close shuts down the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Lookup reads the JSON entry cached under key. ok is false on a miss; err
// is set when Redis or the decode failed, and callers treat that as a miss.
func Lookup[T any](ctx context.Context, r *Redis, key string) (v T, ok bool, err error) {
	raw, err := r.client.Get(ctx, Keyspace+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return v, false, nil
	case err != nil:
		return v, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return v, true, nil
}

// Put caches v as JSON under key for ttl.
func Put(ctx context.Context, r *Redis, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, Keyspace+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache put %s: %w", key, err)
	}
	return nil
}

// Invalidate drops the exact keys and every entry matching one of patterns
// (globs such as "channels:*"). All deletions are attempted; failures are joined.
func Invalidate(ctx context.Context, r *Redis, keys []string, patterns ...string) error {
	var errs []error
	if len(keys) > 0 {
		full := make([]string, len(keys))
		for i, k := range keys {
			full[i] = Keyspace + k
		}
		if err := r.client.Del(ctx, full...).Err(); err != nil {
			errs = append(errs, fmt.Errorf("cache del %v: %w", keys, err))
		}
	}
	for _, p := range patterns {
		if err := r.deleteMatching(ctx, Keyspace+p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// deleteMatching removes keys matching pattern in SCAN-sized batches.
func (r *Redis) deleteMatching(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("cache del pattern %s: %w", pattern, err)
		}
		batch = batch[:0]
		return nil
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan %s: %w", pattern, err)
	}
	return flush()
}
