package security

import (
	"errors"
	"io"
	"net/http"

	"github.com/noah-isme/toko-storefront/internal/common"
)

// BodyLimit caps request payloads at Max bytes. Storefront actions are
// addressed by path alone, so with Discard set the body is drained and
// dropped before the handler runs. Without it the body is wrapped lazily and
// a handler reading past Max gets an error.
type BodyLimit struct {
	Max     int64
	Discard bool
}

// Middleware answers 413 PAYLOAD_TOO_LARGE for oversized bodies.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			tooLarge(w)
			return
		}

		body := http.MaxBytesReader(w, r.Body, b.Max)
		if !b.Discard {
			r.Body = body
			next.ServeHTTP(w, r)
			return
		}

		_, err := io.Copy(io.Discard, body)
		_ = body.Close()
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			tooLarge(w)
			return
		case err != nil:
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
			return
		}
		r.Body = http.NoBody
		r.ContentLength = 0
		next.ServeHTTP(w, r)
	})
}

func tooLarge(w http.ResponseWriter) {
	common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request entity too large", nil)
}
