package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type sessionContextKey struct{}

var SessionContextKey = sessionContextKey{}

type SessionMiddleware struct {
	cookieName string
	ttl        time.Duration
	secure     bool
}

func NewSessionMiddleware(cookieName string, ttl time.Duration, secure bool) *SessionMiddleware {
	return &SessionMiddleware{cookieName: cookieName, ttl: ttl, secure: secure}
}

// Handle makes sure every request carries a session id. A missing or
// malformed cookie is replaced by a fresh one; the cookie expiry slides with
// each request.
func (m *SessionMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := ""

		if cookie, err := r.Cookie(m.cookieName); err == nil {
			if _, err := uuid.Parse(cookie.Value); err == nil {
				sessionID = cookie.Value
			}
		}

		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		http.SetCookie(w, &http.Cookie{
			Name:     m.cookieName,
			Value:    sessionID,
			Path:     "/",
			MaxAge:   int(m.ttl.Seconds()),
			HttpOnly: true,
			Secure:   m.secure,
			SameSite: http.SameSiteLaxMode,
		})

		ctx := context.WithValue(r.Context(), SessionContextKey, sessionID)
		ctx = WithLogger(ctx, LoggerFromContext(ctx).With(slog.String("sessionId", sessionID)))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(SessionContextKey).(string)

	return id
}
