package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-storefront/internal/cache"
)

type payload struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

func setup(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *cache.Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, cache.New(client, ttl)
}

func TestFetchLoadsOnceThenHits(t *testing.T) {
	mr, c := setup(t, time.Minute)
	ctx := context.Background()
	calls := 0
	load := func(context.Context) (payload, error) {
		calls++
		return payload{Name: "Pad", Price: 5000}, nil
	}

	first, err := cache.Fetch(ctx, c, "product", cache.KeyProduct(1), load)
	require.NoError(t, err)
	second, err := cache.Fetch(ctx, c, "product", cache.KeyProduct(1), load)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, calls)
	require.True(t, mr.Exists("storefront:product:1"))

	mr.FastForward(2 * time.Minute)
	_, err = cache.Fetch(ctx, c, "product", cache.KeyProduct(1), load)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	mr, c := setup(t, time.Minute)
	boom := errors.New("boom")
	_, err := cache.Fetch(context.Background(), c, "options", cache.KeyOptions(2), func(context.Context) ([]payload, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	require.False(t, mr.Exists(cache.KeyOptions(2)))
}

func TestFetchSurvivesRedisOutage(t *testing.T) {
	mr, c := setup(t, time.Minute)
	mr.Close()

	v, err := cache.Fetch(context.Background(), c, "product", cache.KeyProduct(3), func(context.Context) (payload, error) {
		return payload{Name: "fallback"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, "fallback", v.Name)
}

func TestDisabledCacheAlwaysLoads(t *testing.T) {
	var c *cache.Cache
	calls := 0
	for range 2 {
		_, err := cache.Fetch(context.Background(), c, "product", "k", func(context.Context) (int, error) {
			calls++
			return 1, nil
		})
		require.NoError(t, err)
	}
	require.Equal(t, 2, calls)
}
