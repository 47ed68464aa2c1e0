package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-storefront/internal/common"
)

type principalKey struct{}

// Middleware resolves the caller principal for each request.
type Middleware struct {
	Verifier     *Verifier
	AccessCookie string
	Logger       zerolog.Logger
}

// Authenticate attaches the verified principal to the request. Requests with
// a missing or invalid token continue anonymously; the upstream decides what
// anonymous callers may do.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := Anonymous()
		if token := m.extractToken(r); token != "" && m.Verifier != nil {
			p, err := m.Verifier.Verify(token)
			if err != nil {
				m.Logger.Debug().Err(err).Msg("ignore invalid bearer token")
			} else {
				principal = p
			}
		}
		ctx := context.WithValue(r.Context(), principalKey{}, principal)
		if principal.IsAuthenticated() {
			ctx = common.WithUserID(ctx, principal.MemberID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromRequest returns the principal resolved by Authenticate.
func FromRequest(r *http.Request) Principal {
	if r == nil {
		return Anonymous()
	}
	if p, ok := r.Context().Value(principalKey{}).(Principal); ok {
		return p
	}
	return Anonymous()
}

func (m Middleware) extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if m.AccessCookie != "" {
		if cookie, err := r.Cookie(m.AccessCookie); err == nil {
			if value := strings.TrimSpace(cookie.Value); value != "" {
				return value
			}
		}
	}
	return ""
}
