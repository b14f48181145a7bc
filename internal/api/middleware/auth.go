package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils/response"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey uuid.UUID

var UserContextKey = contextKey(uuid.New())

type AuthMiddleware struct {
	jwtKey []byte
}

func NewAuthMiddleware(jwtKey []byte) *AuthMiddleware {
	return &AuthMiddleware{jwtKey: jwtKey}
}

// Authenticate resolves the signed-in user from a bearer token. Requests
// without an Authorization header pass through as guests; a header that is
// present but invalid is rejected.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := LoggerFromContext(r.Context())

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		// Token is of format : "Bearer <token>"
		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || strings.Contains(tokenString, " ") {
			logger.Warn("Invalid authorization header format")
			response.Error(w, errors.UnauthorizedError("Invalid authorization format"))
			return
		}

		claims := &models.Claims{}

		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
			return m.jwtKey, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			logger.Warn("JWT validation failed", slog.Any("error", err))
			response.Error(w, errors.UnauthorizedError("Invalid or expired token"))
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		ctx = WithLogger(ctx, logger.With(slog.String("userId", claims.UserID.String())))

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func ClaimsFromContext(ctx context.Context) (*models.Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*models.Claims)

	return claims, ok && claims != nil
}

// CallerFromContext combines the browser session and, when signed in, the user.
func CallerFromContext(ctx context.Context) models.Caller {
	caller := models.Caller{SessionID: SessionIDFromContext(ctx)}

	if claims, ok := ClaimsFromContext(ctx); ok && claims.UserID != uuid.Nil {
		userID := claims.UserID
		caller.UserID = &userID
	}

	return caller
}
