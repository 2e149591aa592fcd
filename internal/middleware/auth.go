package middleware

import (
	"context"
	"net/http"

	"hostscore/internal/model"
)

// Injected key type to avoid context collisions
type contextKey string

const SessionContextKey = contextKey("session")

// SessionValidator checks a session token and returns the identity it
// carries.
type SessionValidator interface {
	Validate(token string) (*model.SessionData, error)
	CookieName() string
}

// SessionFromContext extracts the authenticated identity, if any.
func SessionFromContext(ctx context.Context) (*model.SessionData, bool) {
	data, ok := ctx.Value(SessionContextKey).(*model.SessionData)
	return data, ok
}

// AuthMiddleware requires a valid session cookie and injects the identity
// into the request context.
func AuthMiddleware(sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessions.CookieName())
			if err != nil || cookie.Value == "" {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}
			data, err := sessions.Validate(cookie.Value)
			if err != nil {
				http.Error(w, "Invalid or expired session", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), SessionContextKey, data)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware injects the identity when a valid session cookie is
// present and lets anonymous requests through untouched.
func OptionalAuthMiddleware(sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessions.CookieName())
			if err == nil && cookie.Value != "" {
				if data, err := sessions.Validate(cookie.Value); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), SessionContextKey, data))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
