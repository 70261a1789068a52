package middlewares

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/pasiforum/backend/internal/models"
	"go.uber.org/zap"
)

// SessionCookieName is the cookie carrying the opaque session id
const SessionCookieName = "session_id"

const sessionKey contextKey = "session"

// SessionStore is the session lookup needed by the guard middlewares
type SessionStore interface {
	// GetByID retrieves a live session by id. Returns
	// models.ErrSessionNotFound when the session is absent or expired.
	GetByID(ctx context.Context, id string) (*models.Session, error)
}

// SessionMiddleware resolves the session_id cookie against the session store
// and attaches the session to the request context. Requests without a live
// session are rejected with 401.
func SessionMiddleware(sessions SessionStore, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"authentication required"}`))
				return
			}

			session, err := sessions.GetByID(r.Context(), cookie.Value)
			if err != nil {
				if err != models.ErrSessionNotFound {
					logger.Error("failed to look up session", zap.Error(err))
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"invalid or expired session"}`))
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose session role snapshot is below minRole.
// Must run after SessionMiddleware.
func RequireRole(minRole models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := GetSession(r.Context())
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"authentication required"}`))
				return
			}

			if session.RoleSnapshot < minRole {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error":"insufficient permissions"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CSRFMiddleware validates the csrf_token form field against the session's
// token on state-changing requests. The comparison is constant-time. Must run
// after SessionMiddleware.
func CSRFMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := GetSession(r.Context())
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"authentication required"}`))
				return
			}

			if err := r.ParseForm(); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":"failed to parse request"}`))
				return
			}

			submitted := r.PostFormValue("csrf_token")
			if subtle.ConstantTimeCompare([]byte(submitted), []byte(session.CSRFToken)) != 1 {
				logger.Warn("csrf token mismatch",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.String("path", r.URL.Path),
					zap.Int("userId", session.UserID),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error":"invalid csrf token"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetSession retrieves the session from context
func GetSession(ctx context.Context) (*models.Session, bool) {
	session, ok := ctx.Value(sessionKey).(*models.Session)
	return session, ok
}
