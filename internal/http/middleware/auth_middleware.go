package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/teacherportal/marks-portal-service/internal/http/response"
	"github.com/teacherportal/marks-portal-service/internal/service"
)

type contextKey string

const (
	TeacherIDContextKey    contextKey = "teacher_id"
	SessionTokenContextKey contextKey = "session_token"
)

// SessionAuthenticator validates an opaque session token and returns the
// owning teacher. It is the only gate in front of protected handlers.
type SessionAuthenticator interface {
	Guard(ctx context.Context, token, ip string) (uint, error)
}

// SessionAuth extracts the token from the session cookie, falling back to
// an Authorization bearer header for non-browser clients, and rejects the
// request before any handler runs when validation fails.
func SessionAuth(auth SessionAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionTokenFromRequest(r)
			teacherID, err := auth.Guard(r.Context(), token, clientIP(r))
			if err != nil {
				if errors.Is(err, service.ErrSessionExpired) {
					response.Error(w, r, http.StatusUnauthorized, "SESSION_EXPIRED", "session has expired, log in again", nil)
					return
				}
				if errors.Is(err, service.ErrSessionInvalid) {
					response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid session token", nil)
					return
				}
				response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "session validation failed", nil)
				return
			}
			ctx := context.WithValue(r.Context(), TeacherIDContextKey, teacherID)
			ctx = context.WithValue(ctx, SessionTokenContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SessionTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie("session_token"); err == nil && c.Value != "" {
		return c.Value
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func TeacherIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(TeacherIDContextKey).(uint)
	return id, ok
}

func SessionTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(SessionTokenContextKey).(string)
	return token, ok
}
