// Package middlewares carries the chi middlewares for the public API.
package middlewares

import (
	"context"
	"net/http"
	"strings"
)

// The fronting identity service authenticates requests and forwards an
// opaque user id plus a staff flag. The core trusts these headers; it never
// sees credentials or sessions.
const (
	HeaderUserID = "X-User-ID"
	HeaderAdmin  = "X-Admin"
)

type contextKey string

const (
	ContextKeyUserID contextKey = "user_id"
	ContextKeyAdmin  contextKey = "is_admin"
)

// Identity copies the identity headers into the request context.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyUserID, strings.TrimSpace(r.Header.Get(HeaderUserID)))
		ctx = context.WithValue(ctx, ContextKeyAdmin, strings.EqualFold(r.Header.Get(HeaderAdmin), "true"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID returns the authenticated user id, "" when anonymous.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyUserID).(string)
	return id
}

// IsAdmin reports whether the request carries the staff flag.
func IsAdmin(ctx context.Context) bool {
	admin, _ := ctx.Value(ContextKeyAdmin).(bool)
	return admin
}

// RequireUser rejects anonymous requests with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserID(r.Context()) == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthenticated","message":"X-User-ID header is required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects non-staff requests with 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(r.Context()) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"forbidden","message":"admin privileges required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
