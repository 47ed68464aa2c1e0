// Package cache stores read-only upstream payloads as JSON in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-storefront/internal/obs"
)

// Cache wraps Redis helpers for JSON payloads. A nil *Cache or one built
// without a client behaves as an always-miss cache.
type Cache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// New constructs a cache helper. A non-positive ttl disables caching.
func New(client redis.Cmdable, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if !c.enabled() || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if !c.enabled() || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Delete drops the given keys.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if !c.enabled() || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Fetch returns the cached value for key or calls load and stores its
// result. Redis failures are logged and never fail the call; load errors
// are returned unchanged and not cached.
func Fetch[T any](ctx context.Context, c *Cache, kind, key string, load func(context.Context) (T, error)) (T, error) {
	var cached T
	hit, err := c.GetJSON(ctx, key, &cached)
	switch {
	case err != nil:
		obs.Inc(obs.ViewCacheTotal, kind, "error")
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache read failed")
	case hit:
		obs.Inc(obs.ViewCacheTotal, kind, "hit")
		return cached, nil
	default:
		if c.enabled() {
			obs.Inc(obs.ViewCacheTotal, kind, "miss")
		}
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if err := c.SetJSON(ctx, key, v); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return v, nil
}

// KeyProduct is the cache key of a product detail payload.
func KeyProduct(productID int64) string {
	return "storefront:product:" + strconv.FormatInt(productID, 10)
}

// KeyOptions is the cache key of a product's option list.
func KeyOptions(productID int64) string {
	return "storefront:options:" + strconv.FormatInt(productID, 10)
}
