package mocks

import (
	"context"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockOrderRepository struct {
	mock.Mock
}

func NewMockOrderRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockOrderRepository {
	m := &MockOrderRepository{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockOrderRepository) order(args mock.Arguments) (*models.Order, error) {
	if o, ok := args.Get(0).(*models.Order); ok {
		return o, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockOrderRepository) orders(args mock.Arguments) []*models.Order {
	if o, ok := args.Get(0).([]*models.Order); ok {
		return o
	}

	return nil
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return m.order(m.Called(ctx, id))
}

func (m *MockOrderRepository) GetOrderByPaymentSession(ctx context.Context, paymentSessionID string) (*models.Order, error) {
	return m.order(m.Called(ctx, paymentSessionID))
}

func (m *MockOrderRepository) FindRecentConfirmable(ctx context.Context, caller models.Caller, since time.Time) (*models.Order, error) {
	return m.order(m.Called(ctx, caller, since))
}

func (m *MockOrderRepository) ListOrders(ctx context.Context, caller models.Caller, page, size int) ([]*models.Order, int, error) {
	args := m.Called(ctx, caller, page, size)

	return m.orders(args), args.Int(1), args.Error(2)
}

func (m *MockOrderRepository) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*models.Order, error) {
	args := m.Called(ctx, createdBefore, limit)

	return m.orders(args), args.Error(1)
}

func (m *MockOrderRepository) SetPaymentSession(ctx context.Context, id uuid.UUID, paymentSessionID string) error {
	return m.Called(ctx, id, paymentSessionID).Error(0)
}

func (m *MockOrderRepository) Complete(ctx context.Context, id uuid.UUID, completion models.Completion) (bool, error) {
	args := m.Called(ctx, id, completion)

	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}
