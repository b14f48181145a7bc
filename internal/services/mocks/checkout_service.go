package mocks

import (
	"context"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/aaravmahajanofficial/storefront-checkout/pkg/stripe"
	"github.com/stretchr/testify/mock"
)

type CheckoutService struct {
	mock.Mock
}

func checkoutResponse(args mock.Arguments) (*models.CheckoutResponse, error) {
	if r, ok := args.Get(0).(*models.CheckoutResponse); ok {
		return r, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *CheckoutService) Initiate(ctx context.Context, caller models.Caller, req *models.InitiateCheckoutRequest) (*models.CheckoutResponse, error) {
	return checkoutResponse(m.Called(ctx, caller, req))
}

func (m *CheckoutService) Confirm(ctx context.Context, caller models.Caller) (*models.CheckoutResponse, error) {
	return checkoutResponse(m.Called(ctx, caller))
}

func (m *CheckoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*stripe.Event, error) {
	args := m.Called(ctx, payload, signature)
	if e, ok := args.Get(0).(*stripe.Event); ok {
		return e, args.Error(1)
	}

	return nil, args.Error(1)
}
