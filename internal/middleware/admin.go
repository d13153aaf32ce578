package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const AdminTokenHeader = "X-Admin-Token"

// AdminToken guards operator routes. With no configured token the routes are
// disabled entirely.
func AdminToken(token string) func(http.Handler) http.Handler {
	token = strings.TrimSpace(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				WriteError(w, http.StatusServiceUnavailable, "admin_disabled", "admin token not configured")
				return
			}
			got := r.Header.Get(AdminTokenHeader)
			if got == "" {
				if auth := r.Header.Get("Authorization"); len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
					got = strings.TrimSpace(auth[7:])
				}
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid admin token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
