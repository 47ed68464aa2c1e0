package security

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// chunked hides the length so only the streamed read can trip the limit.
type chunked struct{ io.Reader }

func send(t *testing.T, h http.Handler, body io.Reader, length int64) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/drafts/d1/cart", body)
	req.ContentLength = length
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestBodyLimitDiscardDropsSmallBodies(t *testing.T) {
	var seen []byte
	h := BodyLimit{Max: 16, Discard: true}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		seen, err = io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Zero(t, r.ContentLength)
		w.WriteHeader(http.StatusOK)
	}))

	rr := send(t, h, chunked{strings.NewReader(`{"ignored":1}`)}, -1)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, seen)
}

func TestBodyLimitDiscardRejectsStreamedOversize(t *testing.T) {
	called := false
	h := BodyLimit{Max: 4, Discard: true}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rr := send(t, h, chunked{strings.NewReader("excessive")}, -1)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	require.Contains(t, rr.Body.String(), "PAYLOAD_TOO_LARGE")
	require.False(t, called)
}

func TestBodyLimitRejectsDeclaredLength(t *testing.T) {
	h := BodyLimit{Max: 5}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := send(t, h, strings.NewReader("content"), 100)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestBodyLimitLazyReadStopsAtMax(t *testing.T) {
	var readErr error
	h := BodyLimit{Max: 4}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))

	send(t, h, chunked{strings.NewReader("excessive")}, -1)
	var maxErr *http.MaxBytesError
	require.True(t, errors.As(readErr, &maxErr))
	require.EqualValues(t, 4, maxErr.Limit)
}

func TestBodyLimitDisabled(t *testing.T) {
	h := BodyLimit{}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Equal(t, "hello", string(data))
	}))
	require.Equal(t, http.StatusOK, send(t, h, strings.NewReader("hello"), 5).Code)
}
