package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"bookrec/internal/platform/crypto"
	"bookrec/internal/session"
)

// SessionResolver maps a live session id to the user that owns it. Unknown,
// expired and ended sessions are reported as session.ErrNotFound.
type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string) (userID string, err error)
}

// AuthMiddleware validates the bearer token and resolves its session. The
// token alone is not enough: a logged-out or expired session is rejected.
// A store failure while resolving is a 500, not a 401.
func AuthMiddleware(secret string, sessions SessionResolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				Unauthorized(w, r)
				return
			}

			claims, err := crypto.ParseToken(secret, token)
			if err != nil || claims.ID == "" {
				Unauthorized(w, r)
				return
			}

			userID, err := sessions.Resolve(r.Context(), claims.ID)
			switch {
			case errors.Is(err, session.ErrNotFound):
				Unauthorized(w, r)
				return
			case err != nil:
				InternalError(w, r, fmt.Errorf("resolve session: %w", err))
				return
			case userID != claims.Sub:
				Unauthorized(w, r)
				return
			}

			ctx := ContextWithUser(r.Context(), userID, claims.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return token, token != ""
}
