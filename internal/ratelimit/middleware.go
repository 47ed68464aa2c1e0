package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/toko-storefront/internal/auth"
	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/config"
)

// Config describes how to derive a rate limit key and thresholds.
type Config struct {
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// Handler enforces rate limits before delegating to the next handler.
type Handler struct {
	Limiter Allower
	Config  Config
	OnError func(error)
}

// New picks the limiter driver named in cfg. Both drivers share client.
func New(client *redis.Client, driver, prefix string) (Allower, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case config.DriverFixed:
		fixed, err := NewFixed(client, prefix)
		if err != nil {
			return nil, err
		}
		return fixed, nil
	default:
		return Sliding{Client: client, Prefix: prefix}, nil
	}
}

// ByCaller keys on the authenticated member, falling back to the client IP.
// scope separates budgets of different endpoints.
func ByCaller(scope string) func(*http.Request) string {
	return func(r *http.Request) string {
		if p := auth.FromRequest(r); p.IsAuthenticated() {
			return scope + ":member:" + p.MemberID
		}
		return scope + ":ip:" + common.ClientIP(r)
	}
}

// Middleware implements the http.Handler middleware interface.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Limiter == nil || h.Config.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := h.Config.Key(r)
		allowed, remaining, resetAt, err := h.Limiter.Allow(r.Context(), key, h.Config.Window, h.Config.Max)
		if err != nil {
			// fail open; a Redis outage must not block favorites
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		limitValue := max(h.Config.Max, 0)
		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(limitValue))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retryAfter := max(int(time.Until(resetAt).Seconds()), 0)
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, try again shortly", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
