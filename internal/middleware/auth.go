package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/vencura/vencura/internal/logger"
	apperrors "github.com/vencura/vencura/pkg/errors"
)

// ContextKey is a type for context keys
type ContextKey string

// UserIDKey holds the authenticated user id (the token subject)
const UserIDKey ContextKey = "user_id"

// Authenticator resolves a bearer token to a user id
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// Auth rejects requests without a valid token and stores the user id in the
// request context. The Authorization header may carry "Bearer <jwt>" or the
// bare token.
func Auth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r.Header.Get("Authorization"))

			userID, err := a.Authenticate(r.Context(), token)
			if err != nil {
				WriteError(w, r, apperrors.ErrUnauthorized)
				return
			}

			StripCredentialHeaders(r.Header)

			ctx := WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(header string) string {
	header = strings.TrimSpace(header)
	scheme, rest, ok := strings.Cut(header, " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(rest)
	}
	return header
}

// WithUserID stores userID for handlers and log lines
func WithUserID(ctx context.Context, userID string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return logger.WithUserID(ctx, userID)
}

// GetUserID returns the authenticated user id, or "" outside Auth
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}
