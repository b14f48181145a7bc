package mocks

import (
	"context"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/stretchr/testify/mock"
)

type ProductService struct {
	mock.Mock
}

func (m *ProductService) GetProduct(ctx context.Context, id models.ProductID) (*models.Product, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*models.Product); ok {
		return p, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *ProductService) ListProducts(ctx context.Context, page, size int) ([]*models.Product, int, error) {
	args := m.Called(ctx, page, size)
	if p, ok := args.Get(0).([]*models.Product); ok {
		return p, args.Int(1), args.Error(2)
	}

	return nil, args.Int(1), args.Error(2)
}
