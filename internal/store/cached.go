package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/voyagen/channeldesk/internal/cache"
	"github.com/voyagen/channeldesk/internal/metrics"
	"github.com/voyagen/channeldesk/internal/models"
)

// Cache TTLs per entity.
const (
	ttlChannels    = 1 * time.Minute
	ttlChannel     = 5 * time.Minute
	ttlVideoCounts = 1 * time.Minute
	ttlSetting     = 5 * time.Minute
)

const keyVideoCounts = "videos:by-channel"

// CachedStore wraps a Store with a Redis read-through cache.
// Writes go to the inner store first and then invalidate affected keys.
// Cache errors are logged and counted, never returned.
type CachedStore struct {
	inner   Store
	cache   *cache.Redis
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewCachedStore wraps inner with Redis caching.
func NewCachedStore(inner Store, c *cache.Redis, m *metrics.Metrics, log zerolog.Logger) *CachedStore {
	return &CachedStore{inner: inner, cache: c, metrics: m, log: log}
}

func (c *CachedStore) ListChannels(ctx context.Context, filter ChannelFilter) ([]models.Channel, error) {
	key := "channels:" + filterKey(filter)
	if v, ok := lookup[[]models.Channel](ctx, c, key); ok {
		return v, nil
	}
	channels, err := c.inner.ListChannels(ctx, filter)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, channels, ttlChannels)
	return channels, nil
}

func (c *CachedStore) GetChannel(ctx context.Context, id string) (*models.Channel, error) {
	key := "channel:" + id
	if v, ok := lookup[models.Channel](ctx, c, key); ok {
		return &v, nil
	}
	ch, err := c.inner.GetChannel(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, ch, ttlChannel)
	return ch, nil
}

func (c *CachedStore) VideoCounts(ctx context.Context) ([]models.VideoCount, error) {
	if v, ok := lookup[[]models.VideoCount](ctx, c, keyVideoCounts); ok {
		return v, nil
	}
	counts, err := c.inner.VideoCounts(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, keyVideoCounts, counts, ttlVideoCounts)
	return counts, nil
}

func (c *CachedStore) GetSetting(ctx context.Context, key string) (json.RawMessage, error) {
	ck := "setting:" + key
	if v, ok := lookup[json.RawMessage](ctx, c, ck); ok {
		return v, nil
	}
	raw, err := c.inner.GetSetting(ctx, key)
	if err != nil {
		return nil, err
	}
	c.set(ctx, ck, raw, ttlSetting)
	return raw, nil
}

func (c *CachedStore) CreateChannel(ctx context.Context, ch *models.Channel) (*models.Channel, error) {
	out, err := c.inner.CreateChannel(ctx, ch)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, nil, "channels:*")
	return out, nil
}

func (c *CachedStore) UpdateChannel(ctx context.Context, id string, ch *models.Channel) (*models.Channel, error) {
	out, err := c.inner.UpdateChannel(ctx, id, ch)
	if err != nil {
		return nil, err
	}
	// channel_id may have changed, which re-keys the video counts.
	c.invalidate(ctx, []string{"channel:" + id, keyVideoCounts}, "channels:*")
	return out, nil
}

func (c *CachedStore) DeleteChannel(ctx context.Context, id string) error {
	if err := c.inner.DeleteChannel(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, []string{"channel:" + id, keyVideoCounts}, "channels:*")
	return nil
}

func (c *CachedStore) MarkSynced(ctx context.Context, id string, at time.Time) error {
	if err := c.inner.MarkSynced(ctx, id, at); err != nil {
		return err
	}
	c.invalidate(ctx, []string{"channel:" + id}, "channels:*")
	return nil
}

func (c *CachedStore) UpsertVideos(ctx context.Context, channelRef string, videos []models.Video) (int, error) {
	n, err := c.inner.UpsertVideos(ctx, channelRef, videos)
	if err != nil {
		return n, err
	}
	if n > 0 {
		c.invalidate(ctx, []string{keyVideoCounts})
	}
	return n, nil
}

func (c *CachedStore) PutSetting(ctx context.Context, key string, value json.RawMessage) error {
	if err := c.inner.PutSetting(ctx, key, value); err != nil {
		return err
	}
	c.invalidate(ctx, []string{"setting:" + key})
	return nil
}

// lookup reads key from the cache; a Redis or decode failure counts as a miss.
func lookup[T any](ctx context.Context, c *CachedStore, key string) (T, bool) {
	v, ok, err := cache.Lookup[T](ctx, c.cache, key)
	if err != nil {
		c.metrics.CacheFailures.Inc()
		c.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}
	return v, ok
}

func (c *CachedStore) set(ctx context.Context, key string, v any, ttl time.Duration) {
	if err := cache.Put(ctx, c.cache, key, v, ttl); err != nil {
		c.metrics.CacheFailures.Inc()
		c.log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

func (c *CachedStore) invalidate(ctx context.Context, keys []string, patterns ...string) {
	if err := cache.Invalidate(ctx, c.cache, keys, patterns...); err != nil {
		c.metrics.CacheFailures.Inc()
		c.log.Warn().Err(err).Strs("keys", keys).Strs("patterns", patterns).Msg("cache invalidate failed")
	}
}

// filterKey renders a ChannelFilter as a stable cache key suffix.
func filterKey(f ChannelFilter) string {
	lang, typ := "*", "*"
	if f.Language != nil {
		lang = string(*f.Language)
	}
	if f.ChannelType != nil {
		typ = string(*f.ChannelType)
	}
	return fmt.Sprintf("lang=%s:type=%s", lang, typ)
}
