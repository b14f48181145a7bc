package mocks

import (
	"context"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type OrderService struct {
	mock.Mock
}

func (m *OrderService) GetOrder(ctx context.Context, caller models.Caller, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, caller, id)
	if o, ok := args.Get(0).(*models.Order); ok {
		return o, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *OrderService) ListOrders(ctx context.Context, caller models.Caller, page, size int) ([]*models.Order, int, error) {
	args := m.Called(ctx, caller, page, size)
	if o, ok := args.Get(0).([]*models.Order); ok {
		return o, args.Int(1), args.Error(2)
	}

	return nil, args.Int(1), args.Error(2)
}

func (m *OrderService) Sweep(ctx context.Context, olderThan time.Duration, limit int) (*models.SweepResult, error) {
	args := m.Called(ctx, olderThan, limit)
	if r, ok := args.Get(0).(*models.SweepResult); ok {
		return r, args.Error(1)
	}

	return nil, args.Error(1)
}
