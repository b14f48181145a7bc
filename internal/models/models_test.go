package models_test

import (
	"testing"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to models.OrderStatus
		want     bool
	}{
		{models.OrderStatusPending, models.OrderStatusCompleted, true},
		{models.OrderStatusPending, models.OrderStatusFailed, true},
		{models.OrderStatusPending, models.OrderStatusPending, false},
		{models.OrderStatusCompleted, models.OrderStatusFailed, false},
		{models.OrderStatusCompleted, models.OrderStatusPending, false},
		{models.OrderStatusFailed, models.OrderStatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	assert.False(t, models.OrderStatusPending.IsTerminal())
	assert.True(t, models.OrderStatusCompleted.IsTerminal())
	assert.True(t, models.OrderStatusFailed.IsTerminal())
}

func TestCart_Snapshot(t *testing.T) {
	cart := models.NewCart("sess-1")
	cart.Items[2] = models.CartItem{ProductID: 2, Name: "Mug", Price: decimal.RequireFromString("9.99"), Quantity: 1}
	cart.Items[1] = models.CartItem{ProductID: 1, Name: "Lamp", Price: decimal.RequireFromString("19.99"), Quantity: 2}

	snapshot := cart.Snapshot()

	require.Len(t, snapshot.Items, 2)
	assert.Equal(t, models.ProductID(1), snapshot.Items[0].ProductID)
	assert.Equal(t, models.ProductID(2), snapshot.Items[1].ProductID)
	assert.True(t, decimal.RequireFromString("49.97").Equal(snapshot.Total))
	assert.Equal(t, int64(3), snapshot.ItemCount)
	assert.Len(t, cart.Items, 2)
}

func TestCart_SnapshotEmpty(t *testing.T) {
	snapshot := models.NewCart("sess-1").Snapshot()

	assert.Empty(t, snapshot.Items)
	assert.True(t, snapshot.Total.IsZero())
	assert.Zero(t, snapshot.ItemCount)
}

func TestCart_QuantityOf(t *testing.T) {
	var missing *models.Cart
	assert.Zero(t, missing.QuantityOf(1))

	cart := models.NewCart("sess-1")
	cart.Items[7] = models.CartItem{ProductID: 7, Quantity: 4}

	assert.Equal(t, int64(4), cart.QuantityOf(7))
	assert.Zero(t, cart.QuantityOf(8))
}

func TestParseProductID(t *testing.T) {
	id, err := models.ParseProductID("42")
	require.NoError(t, err)
	assert.Equal(t, models.ProductID(42), id)
	assert.Equal(t, "42", id.String())

	for _, raw := range []string{"", "abc", "0", "-3", "1.5"} {
		_, err := models.ParseProductID(raw)
		assert.Error(t, err, raw)
	}
}

func TestCaller_IsAnonymous(t *testing.T) {
	assert.True(t, models.Caller{}.IsAnonymous())
	assert.False(t, models.Caller{SessionID: "sess-1"}.IsAnonymous())
}
