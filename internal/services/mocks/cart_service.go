package mocks

import (
	"context"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/stretchr/testify/mock"
)

type CartService struct {
	mock.Mock
}

func snapshot(args mock.Arguments) (*models.CartSnapshot, error) {
	if s, ok := args.Get(0).(*models.CartSnapshot); ok {
		return s, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *CartService) Add(ctx context.Context, sessionID string, productID models.ProductID, quantity int64) (*models.CartSnapshot, error) {
	return snapshot(m.Called(ctx, sessionID, productID, quantity))
}

func (m *CartService) SetQuantity(ctx context.Context, sessionID string, productID models.ProductID, quantity int64) (*models.CartSnapshot, error) {
	return snapshot(m.Called(ctx, sessionID, productID, quantity))
}

func (m *CartService) Remove(ctx context.Context, sessionID string, productID models.ProductID) (*models.CartSnapshot, error) {
	return snapshot(m.Called(ctx, sessionID, productID))
}

func (m *CartService) Clear(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *CartService) Snapshot(ctx context.Context, sessionID string) (*models.CartSnapshot, error) {
	return snapshot(m.Called(ctx, sessionID))
}
