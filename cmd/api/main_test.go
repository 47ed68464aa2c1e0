package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-storefront/internal/app"
	"github.com/noah-isme/toko-storefront/internal/auth"
	"github.com/noah-isme/toko-storefront/internal/config"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	shop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/product/product_id/5":
			_, _ = w.Write([]byte(`{"product":{"product_id":5,"product_name":"Pad","product_price":1200}}`))
		case "/api/product/option/5":
			_, _ = w.Write([]byte(`[{"option_id":1,"option_name":"Red","price":1000,"stock":3}]`))
		case "/api/gameboard/id/9":
			_, _ = w.Write([]byte(`{"id":9,"title":"Hello","member_id":"7"}`))
		case "/api/product/remove/5":
			w.WriteHeader(http.StatusOK)
		case "/api/like":
			_, _ = w.Write([]byte(`{"like":true,"countLike":1}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(shop.Close)

	mr := miniredis.RunT(t)
	t.Setenv("REDIS_URL", "redis://"+mr.Addr())
	t.Setenv("UPSTREAM_BASE_URL", shop.URL)
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("RATE_LIMIT_MAX", "1")
	cfg, err := config.Load()
	require.NoError(t, err)

	deps, err := app.Build(context.Background(), cfg, zerolog.Nop(), app.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })

	verifier, err := auth.NewVerifier(cfg.JWTSecret, "", "")
	require.NoError(t, err)
	return newRouter(cfg, deps, routerDeps{logger: zerolog.Nop(), verifier: verifier})
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "192.0.2.1:1234"
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouterServesHealth(t *testing.T) {
	h := newTestServer(t)

	require.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/health/live").Code)
	rr := serve(h, http.MethodGet, "/health/ready")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestRouterDraftFlowAndRateLimit(t *testing.T) {
	h := newTestServer(t)

	rr := serve(h, http.MethodPost, "/api/v1/products/5/drafts")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	var view struct {
		DraftID string `json:"draftId"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))

	rr = serve(h, http.MethodPost, "/api/v1/drafts/"+view.DraftID+"/options/1")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"total":1000`)

	rr = serve(h, http.MethodPost, "/api/v1/drafts/"+view.DraftID+"/favorite")
	require.Equal(t, http.StatusOK, rr.Code)
	rr = serve(h, http.MethodPost, "/api/v1/drafts/"+view.DraftID+"/favorite")
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestRouterBoardLike(t *testing.T) {
	h := newTestServer(t)

	rr := serve(h, http.MethodGet, "/api/v1/boards/9")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"title":"Hello"`)

	rr = serve(h, http.MethodPost, "/api/v1/boards/9/like")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"liked":true`)
}

func TestRouterAuditsProductDelete(t *testing.T) {
	h := newTestServer(t)

	rr := serve(h, http.MethodDelete, "/api/v1/products/5")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = serve(h, http.MethodGet, "/api/v1/admin/audit")
	require.Equal(t, http.StatusForbidden, rr.Code)
}
