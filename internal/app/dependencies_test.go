package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-storefront/internal/auth"
	"github.com/noah-isme/toko-storefront/internal/config"
	"github.com/noah-isme/toko-storefront/internal/ratelimit"
)

func testConfig(t *testing.T, upstreamURL string) *config.Config {
	t.Helper()
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_URL", "redis://"+mr.Addr())
	t.Setenv("UPSTREAM_BASE_URL", upstreamURL)
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("RATE_LIMIT_DRIVER", "fixed")
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestBuildWiresServices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/product/product_id/5":
			_, _ = w.Write([]byte(`{"product":{"product_id":5,"product_name":"Pad","product_price":1200}}`))
		case "/api/product/option/5":
			_, _ = w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(t, srv.URL)
	deps, err := Build(context.Background(), cfg, zerolog.Nop(), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })

	require.IsType(t, ratelimit.Fixed{}, deps.Limiter)
	require.NoError(t, deps.PingRedis(context.Background(), time.Second))
	require.NoError(t, deps.PingUpstream(context.Background(), time.Second))

	view, err := deps.Products.Open(context.Background(), auth.Anonymous(), 5)
	require.NoError(t, err)
	require.Equal(t, "Pad", view.Header.Name)
	require.Equal(t, int64(1200), view.Total)
}

func TestBuildFailsWithoutRedis(t *testing.T) {
	cfg := &config.Config{RedisURL: "redis://127.0.0.1:0"}
	_, err := Build(context.Background(), cfg, zerolog.Nop(), Options{})
	require.Error(t, err)
}

func TestJitterFraction(t *testing.T) {
	require.InDelta(t, 0.5, jitterFraction(100*time.Millisecond, 50*time.Millisecond), 1e-9)
	require.Zero(t, jitterFraction(0, time.Second))
}
