package errors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	appErrors "github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsufficientStockError(t *testing.T) {
	t.Run("Some Room Left", func(t *testing.T) {
		err := appErrors.InsufficientStockError(2)

		assert.Equal(t, appErrors.ErrCodeInsufficientStock, err.Code)
		assert.Equal(t, http.StatusConflict, err.StatusCode)
		assert.Equal(t, "Only 2 more items available.", err.Message)
		assert.Equal(t, int64(2), err.Meta["room"])
	})

	t.Run("No Room Left", func(t *testing.T) {
		err := appErrors.InsufficientStockError(0)

		assert.Equal(t, int64(0), err.Meta["room"])
		assert.Contains(t, err.Message, "maximum available stock")
	})
}

func TestTooManyRequestsError(t *testing.T) {
	err := appErrors.TooManyRequestsError(1500 * time.Millisecond)

	assert.Equal(t, http.StatusTooManyRequests, err.StatusCode)
	assert.Equal(t, int64(2), err.Meta["retry_after"])
}

func TestIsAppErrorAndHasCode(t *testing.T) {
	cause := errors.New("connection reset")
	wrapped := fmt.Errorf("confirm: %w", appErrors.GatewayUnavailableError().WithError(cause))

	appErr, ok := appErrors.IsAppError(wrapped)

	require.True(t, ok)
	assert.Equal(t, appErrors.ErrCodeGatewayUnavailable, appErr.Code)
	assert.ErrorIs(t, wrapped, cause)
	assert.True(t, appErrors.HasCode(wrapped, appErrors.ErrCodeGatewayUnavailable))
	assert.False(t, appErrors.HasCode(cause, appErrors.ErrCodeGatewayUnavailable))
}
