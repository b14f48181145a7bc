package middleware_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testJwtKey = []byte("test-secret-key-123456789012345")

func createTestToken(t *testing.T, userID uuid.UUID, duration time.Duration, key []byte, method jwt.SigningMethod) string {
	t.Helper()

	claims := &models.Claims{
		UserID: userID,
		Email:  "test@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)

	return token
}

func TestAuthMiddleware(t *testing.T) {
	authMiddleware := middleware.NewAuthMiddleware(testJwtKey)
	userID := uuid.New()

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedBody   string
		expectUser     bool
	}{
		{
			name:           "Valid Token",
			authHeader:     "Bearer " + createTestToken(t, userID, time.Hour, testJwtKey, jwt.SigningMethodHS256),
			expectedStatus: http.StatusOK,
			expectUser:     true,
		},
		{
			name:           "Guest Without Header",
			authHeader:     "",
			expectedStatus: http.StatusOK,
			expectUser:     false,
		},
		{
			name:           "Missing Bearer Prefix",
			authHeader:     "InvalidTokenFormat",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"success": false, "error": {"code": "UNAUTHORIZED", "message": "Invalid authorization format"}}`,
		},
		{
			name:           "Empty Token",
			authHeader:     "Bearer ",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"success": false, "error": {"code": "UNAUTHORIZED", "message": "Invalid or expired token"}}`,
		},
		{
			name:           "Malformed Token",
			authHeader:     "Bearer not.a.valid.token",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"success": false, "error": {"code": "UNAUTHORIZED", "message": "Invalid or expired token"}}`,
		},
		{
			name:           "Wrong Signing Key",
			authHeader:     "Bearer " + createTestToken(t, userID, time.Hour, []byte("different-secret-key-0987654321"), jwt.SigningMethodHS256),
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"success": false, "error": {"code": "UNAUTHORIZED", "message": "Invalid or expired token"}}`,
		},
		{
			name:           "Unexpected Signing Method",
			authHeader:     "Bearer " + createTestToken(t, userID, time.Hour, testJwtKey, jwt.SigningMethodHS512),
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"success": false, "error": {"code": "UNAUTHORIZED", "message": "Invalid or expired token"}}`,
		},
		{
			name:           "Expired Token",
			authHeader:     "Bearer " + createTestToken(t, userID, -time.Hour, testJwtKey, jwt.SigningMethodHS256),
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"success": false, "error": {"code": "UNAUTHORIZED", "message": "Invalid or expired token"}}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var caller models.Caller
			called := false

			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				caller = middleware.CallerFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}

			ctx := context.WithValue(req.Context(), middleware.LoggerKey, slog.New(slog.NewTextHandler(io.Discard, nil)))
			ctx = context.WithValue(ctx, middleware.SessionContextKey, "sess-1")
			req = req.WithContext(ctx)

			rr := httptest.NewRecorder()

			authMiddleware.Authenticate(next).ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code)

			if tc.expectedBody != "" {
				assert.JSONEq(t, tc.expectedBody, rr.Body.String())
				assert.False(t, called, "next handler must not run")

				return
			}

			require.True(t, called)
			assert.Equal(t, "sess-1", caller.SessionID)

			if tc.expectUser {
				require.NotNil(t, caller.UserID)
				assert.Equal(t, userID, *caller.UserID)
			} else {
				assert.Nil(t, caller.UserID)
			}
		})
	}
}

func TestCallerFromContext_Anonymous(t *testing.T) {
	caller := middleware.CallerFromContext(context.Background())

	assert.True(t, caller.IsAnonymous())
}
