package mocks

import (
	"context"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockProductRepository struct {
	mock.Mock
}

func NewMockProductRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockProductRepository {
	m := &MockProductRepository{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockProductRepository) GetProductByID(ctx context.Context, id models.ProductID) (*models.Product, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*models.Product); ok {
		return p, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockProductRepository) ListProducts(ctx context.Context, page, size int) ([]*models.Product, int, error) {
	args := m.Called(ctx, page, size)
	if p, ok := args.Get(0).([]*models.Product); ok {
		return p, args.Int(1), args.Error(2)
	}

	return nil, args.Int(1), args.Error(2)
}

func (m *MockProductRepository) DecrementStock(ctx context.Context, id models.ProductID, amount int64) error {
	return m.Called(ctx, id, amount).Error(0)
}
