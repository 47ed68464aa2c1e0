// Package app assembles the storefront services from configuration. The
// HTTP server and the CLI share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-storefront/internal/audit"
	"github.com/noah-isme/toko-storefront/internal/cache"
	"github.com/noah-isme/toko-storefront/internal/config"
	"github.com/noah-isme/toko-storefront/internal/draft"
	"github.com/noah-isme/toko-storefront/internal/gameboard"
	"github.com/noah-isme/toko-storefront/internal/pricing"
	"github.com/noah-isme/toko-storefront/internal/productview"
	"github.com/noah-isme/toko-storefront/internal/ratelimit"
	"github.com/noah-isme/toko-storefront/internal/resilience"
	"github.com/noah-isme/toko-storefront/internal/upstream"
)

// Dependencies enumerates the services shared by every entrypoint.
type Dependencies struct {
	Redis    *redis.Client
	Breaker  *resilience.Breaker
	Upstream *upstream.Client
	Cache    *cache.Cache
	Drafts   *draft.Store
	Limiter  ratelimit.Allower
	Audit    *audit.Service
	Products *productview.Service
	Boards   *gameboard.Service
}

// Options tweak Build for a given entrypoint.
type Options struct {
	InstrumentRedis bool
	Metrics         bool
}

// Build connects to Redis and wires the page services. Close releases what
// Build opened.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*Dependencies, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	if opts.InstrumentRedis {
		if err := redisotel.InstrumentTracing(rdb); err != nil {
			logger.Error().Err(err).Msg("instrument redis tracing")
		}
		if opts.Metrics {
			if err := redisotel.InstrumentMetrics(rdb); err != nil {
				logger.Error().Err(err).Msg("instrument redis metrics")
			}
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	deps, err := wire(cfg, rdb, logger)
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return deps, nil
}

func wire(cfg *config.Config, rdb *redis.Client, logger zerolog.Logger) (*Dependencies, error) {
	breaker := resilience.NewBreaker("upstream", resilience.Settings{
		MinRequests:  cfg.Circuit.MinRequests,
		FailureRatio: cfg.Circuit.FailureRatio,
		OpenFor:      cfg.Circuit.OpenFor,
	}).WithLogger(logger)

	client := upstream.New(cfg.UpstreamBaseURL, resilience.HTTPClient{
		Client:      upstream.NewHTTPClient(),
		Breaker:     breaker,
		BaseBackoff: cfg.Upstream.RetryBase,
		MaxAttempts: cfg.Upstream.MaxAttempts,
		Jitter:      jitterFraction(cfg.Upstream.RetryBase, cfg.Upstream.RetryJitter),
		Timeout:     cfg.Upstream.Timeout,
	})

	viewCache := cache.New(rdb, cfg.ViewCacheTTL)
	drafts := draft.NewStore(rdb, cfg.DraftTTL, cfg.DraftLockTTL)

	limiter, err := ratelimit.New(rdb, cfg.RateLimitDriver, "storefront:ratelimit:")
	if err != nil {
		return nil, err
	}

	products, err := productview.NewService(productview.ServiceConfig{
		Upstream:  client,
		Drafts:    drafts,
		Cache:     viewCache,
		Formatter: pricing.NewFormatter(cfg.PriceLocale, cfg.CurrencySuffix),
	})
	if err != nil {
		return nil, err
	}
	boards, err := gameboard.NewService(client, time.Local)
	if err != nil {
		return nil, err
	}

	return &Dependencies{
		Redis:    rdb,
		Breaker:  breaker,
		Upstream: client,
		Cache:    viewCache,
		Drafts:   drafts,
		Limiter:  limiter,
		Audit: &audit.Service{
			Store:        audit.RedisStore{R: rdb, MaxLen: cfg.Audit.MaxLen},
			Enabled:      cfg.Audit.Enabled,
			SamplingRate: cfg.Audit.SamplingRate,
		},
		Products: products,
		Boards:   boards,
	}, nil
}

// PingRedis satisfies health.Checker.
func (d *Dependencies) PingRedis(ctx context.Context, timeout time.Duration) error {
	if d == nil || d.Redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.Redis.Ping(ctx).Err()
}

// PingUpstream satisfies health.Checker.
func (d *Dependencies) PingUpstream(ctx context.Context, timeout time.Duration) error {
	if d == nil || d.Upstream == nil {
		return errors.New("upstream not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.Upstream.Ping(ctx)
}

// Close releases the Redis connection pool.
func (d *Dependencies) Close() error {
	if d == nil || d.Redis == nil {
		return nil
	}
	return d.Redis.Close()
}

func jitterFraction(base, jitter time.Duration) float64 {
	if base <= 0 || jitter <= 0 {
		return 0
	}
	return float64(jitter) / float64(base)
}
