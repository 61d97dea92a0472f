package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// APIKeyHeader carries the client's API key.
const APIKeyHeader = "X-API-Key"

// Rejection is called when a request fails authentication. status is 401
// for a missing key and 403 for a key that matches none of the configured ones.
type Rejection func(w http.ResponseWriter, r *http.Request, status int, err error)

// APIKeyAuth returns middleware that checks the X-API-Key header against keys.
// Blank keys are ignored; with no keys left every request passes through.
func APIKeyAuth(keys []string, reject Rejection) func(http.Handler) http.Handler {
	var valid [][]byte
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			valid = append(valid, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(valid) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(APIKeyHeader)
			if key == "" {
				slog.Warn("auth: missing API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				reject(w, r, http.StatusUnauthorized, ErrMissingAPIKey)
				return
			}
			if !matchesAny([]byte(key), valid) {
				slog.Warn("auth: invalid API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				reject(w, r, http.StatusForbidden, ErrInvalidAPIKey)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// matchesAny compares key against every entry in constant time.
func matchesAny(key []byte, valid [][]byte) bool {
	match := 0
	for _, v := range valid {
		match |= subtle.ConstantTimeCompare(key, v)
	}
	return match == 1
}
