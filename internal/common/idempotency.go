package common

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// IdempotencyHeader is the request header naming a client-generated key.
const IdempotencyHeader = "Idempotency-Key"

// Idem provides an Idempotency-Key middleware backed by Redis. Keys are
// scoped to the caller and request path so one key cannot block a different
// draft.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

func hashKey(r *http.Request, key string) string {
	user, _ := UserID(r.Context())
	return "idem:" + Sha256Hex(user+"|"+r.Method+"|"+r.URL.Path+"|"+key)
}

func (i Idem) ttl() time.Duration {
	if i.TTL <= 0 {
		return 10 * time.Minute
	}
	return i.TTL
}

type idemReleaseKey struct{}

// ReleaseIdempotencyKey marks the current request as having had no effect.
// The key is freed once the handler returns, so the client can retry with
// the same key. Outside the middleware it does nothing.
func ReleaseIdempotencyKey(ctx context.Context) {
	if flag, ok := ctx.Value(idemReleaseKey{}).(*atomic.Bool); ok {
		flag.Store(true)
	}
}

// Middleware rejects a replayed key with 409. When the wrapped handler fails
// with a 5xx, or calls ReleaseIdempotencyKey, the key is released.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(IdempotencyHeader)
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		key := hashKey(r, header)
		ok, err := i.R.SetNX(ctx, key, "locked", i.ttl()).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", map[string]any{"error": err.Error()})
			return
		}
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, "{\"error\":{\"code\":\"IDEMPOTENT_REPLAY\",\"message\":\"duplicate request\"}}")
			return
		}
		release := new(atomic.Bool)
		rec := &statusCapture{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(ctx, idemReleaseKey{}, release)))
		if rec.status >= http.StatusInternalServerError || release.Load() {
			_ = i.R.Del(context.WithoutCancel(ctx), key).Err()
		}
	})
}

type statusCapture struct {
	http.ResponseWriter
	status int
}

func (s *statusCapture) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
