package mocks

import (
	"context"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockCartRepository struct {
	mock.Mock
}

func NewMockCartRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockCartRepository {
	m := &MockCartRepository{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockCartRepository) GetCart(ctx context.Context, sessionID string) (*models.Cart, error) {
	args := m.Called(ctx, sessionID)
	if c, ok := args.Get(0).(*models.Cart); ok {
		return c, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockCartRepository) SaveCart(ctx context.Context, cart *models.Cart) error {
	return m.Called(ctx, cart).Error(0)
}

func (m *MockCartRepository) DeleteCart(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}
