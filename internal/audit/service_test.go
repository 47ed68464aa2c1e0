package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-storefront/internal/obs"
)

func newStore(t *testing.T) RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return RedisStore{R: client, MaxLen: 100}
}

func TestServiceRecord(t *testing.T) {
	store := newStore(t)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := Service{Store: store, Enabled: true, SamplingRate: 1, Now: func() time.Time { return at }}

	req := httptest.NewRequest(http.MethodDelete, "https://api.test/api/v1/products/10?force=1", nil)
	req.Header.Set("X-Request-ID", "req-123")
	req.RemoteAddr = "10.0.0.2:54321"
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/api/v1/products/{id}"))

	err := svc.Record(req.Context(), Actor{Kind: ActorKindUser, MemberID: "7"}, "", "", "10", req, http.StatusOK, nil)
	require.NoError(t, err)

	entries, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	require.NotEmpty(t, e.ID)
	require.Equal(t, at, e.At)
	require.Equal(t, ActorKindUser, e.ActorKind)
	require.Equal(t, "7", e.MemberID)
	require.Equal(t, "DELETE /api/v1/products/{id}", e.Action)
	require.Equal(t, "products.{id}", e.ResourceType)
	require.Equal(t, "10", e.ResourceID)
	require.Equal(t, "10.0.0.2", e.IP)
	require.Equal(t, "req-123", e.RequestID)
	require.Equal(t, "force=1", e.Metadata["query"])
}

func TestServiceDisabledOrMisconfigured(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/x", nil)
	require.NoError(t, Service{}.Record(context.Background(), Actor{}, "", "", "", req, 0, nil))
	require.Error(t, Service{Enabled: true}.Record(context.Background(), Actor{}, "", "", "", req, 0, nil))
	require.Error(t, Service{Enabled: true, Store: newStore(t)}.Record(context.Background(), Actor{}, "", "", "", nil, 0, nil))
}

func TestRecentNewestFirst(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	for _, a := range []string{"first", "second", "third"} {
		require.NoError(t, store.Append(ctx, Entry{Action: a}))
	}
	entries, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "third", entries[0].Action)
	require.Equal(t, "second", entries[1].Action)
}

func TestMiddlewareRecordsAnonymousDelete(t *testing.T) {
	store := newStore(t)
	rec := HTTPRecorder{Service: &Service{Store: store, Enabled: true}}

	r := chi.NewRouter()
	r.With(rec.Middleware(HTTPConfig{Action: "board.delete", ResourceType: "board", ResourceIDParam: "id"})).
		Delete("/boards/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/boards/4", nil))
	require.Equal(t, http.StatusForbidden, rr.Code)

	entries, err := store.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, ActorKindAnonymous, entries[0].ActorKind)
	require.Equal(t, "board.delete", entries[0].Action)
	require.Equal(t, "4", entries[0].ResourceID)
	require.Equal(t, http.StatusForbidden, entries[0].Status)
}

type brokenStore struct{}

func (brokenStore) Append(context.Context, Entry) error { return errors.New("down") }

func (brokenStore) Recent(context.Context, int) ([]Entry, error) { return nil, errors.New("down") }

func TestMiddlewareReportsStoreErrors(t *testing.T) {
	var got error
	rec := HTTPRecorder{Service: &Service{Store: brokenStore{}, Enabled: true}, OnError: func(err error) { got = err }}
	h := rec.Middleware(HTTPConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/x", nil))
	require.Error(t, got)
}

func TestHandlerListRequiresAdmin(t *testing.T) {
	rr := httptest.NewRecorder()
	Handler{Store: newStore(t)}.List(rr, httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit", nil))
	require.Equal(t, http.StatusForbidden, rr.Code)

	var body map[string]map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "FORBIDDEN", body["error"]["code"])
}
