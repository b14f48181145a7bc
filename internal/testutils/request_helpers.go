package testutils

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/google/uuid"
)

const TestSessionID = "5f0c5a8e-3a5b-4d43-9c55-0f6f1b9b7d21"

// CreateTestRequestWithContext builds a request as it looks after the session
// and auth middleware ran for a signed-in user.
func CreateTestRequestWithContext(method, target string, body io.Reader, userID uuid.UUID, pathParams map[string]string) *http.Request {
	req := CreateTestRequestWithoutContext(method, target, body, pathParams)

	claims := &models.Claims{UserID: userID, Email: "test@example.com"}
	ctx := context.WithValue(req.Context(), middleware.UserContextKey, claims)

	return req.WithContext(ctx)
}

// CreateTestRequestWithoutContext builds a guest request that carries only a session.
func CreateTestRequestWithoutContext(method, target string, body io.Reader, pathParams map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, body)

	for key, value := range pathParams {
		req.SetPathValue(key, value)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.WithValue(req.Context(), middleware.LoggerKey, logger)
	ctx = context.WithValue(ctx, middleware.SessionContextKey, TestSessionID)

	return req.WithContext(ctx)
}

// GuestCaller is the caller CreateTestRequestWithoutContext resolves to.
func GuestCaller() models.Caller {
	return models.Caller{SessionID: TestSessionID}
}

// UserCaller is the caller CreateTestRequestWithContext resolves to.
func UserCaller(userID uuid.UUID) models.Caller {
	return models.Caller{UserID: &userID, SessionID: TestSessionID}
}
