package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/todo-list/internal/session"
)

// contextKey is an unexported type so no other package can read or shadow
// our context values.
type contextKey string

const userIDKey contextKey = "userID"

// LoadSession resolves the session cookie on every request and, when it names
// a live session, stores the user id in the request context.
//
// Anonymous requests pass through untouched; routes that need a user add
// RequireUser after it. A failed store lookup is a server error, not a
// logged-out user, and gets a 500.
func LoadSession(sessions *session.Manager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			s, err := sessions.Resolve(r.Context(), token)
			if err != nil {
				logger.Error("session lookup failed",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"internal_error","message":"Server error"}`))
				return
			}
			if s != nil {
				r = r.WithContext(WithUserID(r.Context(), s.UserID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser rejects requests without an authenticated user with 401 before
// they reach the handler.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthenticated","message":"Not authenticated"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user's id, or (0, false) for an
// anonymous request.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok && id > 0
}
