package mocks

import (
	"context"

	"github.com/aaravmahajanofficial/storefront-checkout/pkg/stripe"
	"github.com/stretchr/testify/mock"
)

// MockClient is a testify mock of stripe.Client.
type MockClient struct {
	mock.Mock
}

func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockClient) CreateCheckoutSession(ctx context.Context, req *stripe.SessionRequest) (*stripe.Session, error) {
	args := m.Called(ctx, req)
	if s, ok := args.Get(0).(*stripe.Session); ok {
		return s, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockClient) GetCheckoutSession(ctx context.Context, id string) (*stripe.SessionDetails, error) {
	args := m.Called(ctx, id)
	if d, ok := args.Get(0).(*stripe.SessionDetails); ok {
		return d, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockClient) ExpireCheckoutSession(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockClient) VerifyWebhookSignature(payload []byte, signature string) (*stripe.Event, error) {
	args := m.Called(payload, signature)
	if e, ok := args.Get(0).(*stripe.Event); ok {
		return e, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockClient) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
