package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"beam/internal/auth"
	"beam/internal/domain"
)

type contextKey string

const userKey contextKey = "user"

// SessionCookieName is fixed; clients unable to use cookies send the same
// token as a Bearer header instead.
const SessionCookieName = "token"

// Session gates a route on a valid session token. The cookie takes
// precedence over the Authorization header.
func Session(authSvc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)

			user, err := authSvc.Verify(r.Context(), token)
			if err != nil {
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    "NOT_AUTHENTICATED",
			"message": "Missing or invalid token",
		},
	})
}

// GetUser extracts the authenticated user from the request context.
func GetUser(ctx context.Context) *domain.User {
	return ctx.Value(userKey).(*domain.User)
}
