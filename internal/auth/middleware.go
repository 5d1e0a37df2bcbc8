// Package auth provides HTTP middleware for bearer token authentication.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/cjeanneret/irdapower/internal/debug"
)

const bearerPrefix = "Bearer "

// NewAuthMiddleware returns an HTTP middleware that enforces bearer token
// authentication. An empty token disables the check.
//
// When enabled, every request must carry
//
//	Authorization: Bearer <token>
//
// with a case-sensitive prefix and exactly one space. Anything else gets a
// 401 and the next handler is never called.
func NewAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !Authorized(r, token) {
				debug.Verbose("unauthorized %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
				w.Header().Set("WWW-Authenticate", `Bearer realm="irdapower"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authorized reports whether r carries the bearer token.
func Authorized(r *http.Request, token string) bool {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, bearerPrefix) {
		return false
	}
	provided := h[len(bearerPrefix):]
	if provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(token)) == 1
}
