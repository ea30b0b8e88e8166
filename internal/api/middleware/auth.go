package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/smart-lock-service/backend/internal/auth"
)

type contextKey string

const userIDKey contextKey = "user_id"

// Auth returns middleware that validates the bearer token and stores the
// authenticated user id in the request context. The device verify endpoint
// is not mounted behind this; it is authenticated by lock id + code alone.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Missing bearer token")
				return
			}

			userID, err := auth.ParseToken(token, secret)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated user id, or "" outside the auth middleware.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
