// Package auth provides authentication for the HTTP API: an admin API
// key for ingestion endpoints and JWT-bound chat sessions.
package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// APIKeyHeader carries the admin API key
	APIKeyHeader = "X-Api-Key"

	// sessionContextKey is the context key for the session ID
	sessionContextKey contextKey = "session"
)

// RequireAPIKey guards mutating endpoints (ingest, reset) behind a
// static admin key. With no key configured the endpoints are
// unavailable rather than open.
func RequireAPIKey(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey == "" {
				http.Error(w, "admin API key not configured", http.StatusForbidden)
				return
			}
			provided := strings.TrimSpace(r.Header.Get(APIKeyHeader))
			if subtle.ConstantTimeCompare([]byte(provided), []byte(adminKey)) != 1 {
				http.Error(w, "invalid API key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionMiddleware resolves an optional Bearer session token into a
// session ID on the request context. Requests without a token pass
// through anonymously; only a present-but-invalid token is rejected.
func SessionMiddleware(manager *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				http.Error(w, "malformed authorization header", http.StatusUnauthorized)
				return
			}
			claims, err := manager.ValidateToken(strings.TrimSpace(token))
			if err != nil {
				http.Error(w, "invalid session token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, claims.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext extracts the session ID, empty for anonymous
// requests.
func SessionFromContext(ctx context.Context) string {
	sessionID, _ := ctx.Value(sessionContextKey).(string)
	return sessionID
}
