package mocks

import (
	"context"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/stretchr/testify/mock"
)

type Notifier struct {
	mock.Mock
}

func (m *Notifier) OrderCompleted(ctx context.Context, order *models.Order) {
	m.Called(ctx, order)
}

func (m *Notifier) OrderFailed(ctx context.Context, order *models.Order) {
	m.Called(ctx, order)
}
