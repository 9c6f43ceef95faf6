package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/loginhub/auth-service/internal/token"
)

type contextKey string

const (
	sessionUserIDContextKey contextKey = "sessionUserID"
	sessionEmailContextKey  contextKey = "sessionEmail"
)

// SessionAuth validates the bearer session token and injects the caller's
// identity into the request context.
func SessionAuth(tokens *token.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
			if authHeader == "" {
				respondError(w, http.StatusUnauthorized, "Authorization required")
				return
			}

			tokenString, ok := bearerToken(authHeader)
			if !ok {
				respondError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			claims, err := tokens.Parse(tokenString)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), sessionUserIDContextKey, claims.Subject)
			ctx = context.WithValue(ctx, sessionEmailContextKey, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	tok := strings.TrimSpace(parts[1])
	if tok == "" {
		return "", false
	}
	return tok, true
}

// SessionUserID returns the authenticated user id from ctx, or "".
func SessionUserID(ctx context.Context) string {
	id, _ := ctx.Value(sessionUserIDContextKey).(string)
	return id
}

// SessionEmail returns the authenticated email from ctx, or "".
func SessionEmail(ctx context.Context) string {
	email, _ := ctx.Value(sessionEmailContextKey).(string)
	return email
}
