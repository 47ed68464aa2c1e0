package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCSRF(t *testing.T) {
	csrf := CSRF{Header: "X-CSRF-Token", AuthCookie: "accessToken"}

	tests := []struct {
		name    string
		method  string
		prepare func(r *http.Request)
		want    int
	}{
		{"safe method", http.MethodGet, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "accessToken", Value: "jwt"})
		}, http.StatusOK},
		{"anonymous", http.MethodPost, func(*http.Request) {}, http.StatusOK},
		{"bearer", http.MethodPost, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer abc.def")
			r.AddCookie(&http.Cookie{Name: "accessToken", Value: "jwt"})
		}, http.StatusOK},
		{"cookie without token", http.MethodPost, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "accessToken", Value: "jwt"})
		}, http.StatusForbidden},
		{"cookie with mismatched token", http.MethodDelete, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "accessToken", Value: "jwt"})
			r.AddCookie(&http.Cookie{Name: "X-CSRF-Token", Value: "one"})
			r.Header.Set("X-CSRF-Token", "two")
		}, http.StatusForbidden},
		{"cookie with matching token", http.MethodPost, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "accessToken", Value: "jwt"})
			r.AddCookie(&http.Cookie{Name: "X-CSRF-Token", Value: "secure"})
			r.Header.Set("X-CSRF-Token", "secure")
		}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/drafts/x/favorite", nil)
			tt.prepare(req)
			rr := httptest.NewRecorder()
			csrf.Middleware(ok()).ServeHTTP(rr, req)
			require.Equal(t, tt.want, rr.Code)
		})
	}
}
