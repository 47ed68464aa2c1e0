package productview

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-storefront/internal/common"
)

func newRouter(t *testing.T, fb *fakeBackend) http.Handler {
	t.Helper()
	svc, _ := newService(t, fb)
	h := NewHandler(HandlerConfig{Service: svc, PageSize: 10, PageWindow: 5})
	r := chi.NewRouter()
	r.Route("/api/v1", func(v chi.Router) { h.Routes(v, Middlewares{}) })
	return r
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

func TestHandlerDraftLifecycle(t *testing.T) {
	router := newRouter(t, &fakeBackend{product: productPayload(800), options: redOption()})

	rr := do(t, router, http.MethodPost, "/api/v1/products/10/drafts")
	require.Equal(t, http.StatusCreated, rr.Code)
	var view View
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	require.Equal(t, "/api/v1/drafts/"+view.DraftID, rr.Header().Get("Location"))

	base := "/api/v1/drafts/" + view.DraftID
	rr = do(t, router, http.MethodPost, base+"/options/1")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	require.Equal(t, "1,000원", view.TotalFormatted)

	rr = do(t, router, http.MethodPost, base+"/options/1/increase")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	require.Equal(t, 2, view.Lines[0].Quantity)

	rr = do(t, router, http.MethodPost, base+"/options/99")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Contains(t, rr.Body.String(), "UNKNOWN_OPTION")

	rr = do(t, router, http.MethodPost, base+"/options/abc")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, router, http.MethodPut, base+"/image/1")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, router, http.MethodDelete, base)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, router, http.MethodGet, base)
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, rr.Body.String(), "NOT_FOUND")
}

func TestHandlerLinksKeepSearch(t *testing.T) {
	router := newRouter(t, &fakeBackend{})

	rr := do(t, router, http.MethodGet, "/api/v1/products/1/links?p=7&k=pad&c=title&total=95")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		PageInfo struct {
			Current int  `json:"currentPageNumber"`
			Prev    *int `json:"prevPageNumber"`
			Start   int  `json:"startPageNumber"`
			End     int  `json:"endPageNumber"`
		} `json:"pageInfo"`
		Links []struct {
			Kind   string `json:"kind"`
			Page   int    `json:"page"`
			Active bool   `json:"active"`
			Query  string `json:"query"`
		} `json:"links"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, 7, body.PageInfo.Current)
	require.Equal(t, 6, body.PageInfo.Start)
	require.Equal(t, 10, body.PageInfo.End)
	require.NotNil(t, body.PageInfo.Prev)
	require.Equal(t, "prev", body.Links[0].Kind)
	require.Equal(t, "c=title&k=pad&p=5", body.Links[0].Query)
	require.True(t, body.Links[2].Active)
	require.Equal(t, 7, body.Links[2].Page)

	rr = do(t, router, http.MethodGet, "/api/v1/products/1/links?c=author")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerDeleteProduct(t *testing.T) {
	router := newRouter(t, &fakeBackend{})
	rr := do(t, router, http.MethodDelete, "/api/v1/products/10")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"deleted":true`)
}

func TestCartRetryAfterFailedAdd(t *testing.T) {
	fb := &fakeBackend{product: productPayload(800), options: redOption(), cartErr: errors.New("cart down")}
	svc, mr := newService(t, fb)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := NewHandler(HandlerConfig{Service: svc, PageSize: 10, PageWindow: 5})
	router := chi.NewRouter()
	router.Route("/api/v1", func(v chi.Router) {
		h.Routes(v, Middlewares{Cart: common.Idem{R: client, TTL: time.Minute}.Middleware})
	})

	rr := do(t, router, http.MethodPost, "/api/v1/products/10/drafts")
	require.Equal(t, http.StatusCreated, rr.Code)
	var view View
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))

	addToCart := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/drafts/"+view.DraftID+"/cart", nil)
		req.Header.Set(common.IdempotencyHeader, "cart-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rr = addToCart()
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"status":"error"`)

	fb.mu.Lock()
	fb.cartErr = nil
	fb.mu.Unlock()

	rr = addToCart()
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Added to your cart.")

	rr = addToCart()
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Contains(t, rr.Body.String(), "IDEMPOTENT_REPLAY")

	fb.mu.Lock()
	defer fb.mu.Unlock()
	require.Len(t, fb.cartEntries, 2)
}
