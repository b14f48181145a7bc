package health

import (
	"errors"
	"testing"

	"github.com/aaravmahajanofficial/storefront-checkout/pkg/stripe/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestGatewayCheck(t *testing.T) {
	t.Run("Reachable", func(t *testing.T) {
		gateway := mocks.NewMockClient(t)
		gateway.On("Ping", mock.Anything).Return(nil).Once()

		assert.NoError(t, gatewayCheck(gateway)(t.Context()))
	})

	t.Run("Unreachable", func(t *testing.T) {
		gateway := mocks.NewMockClient(t)
		pingErr := errors.New("dial tcp: i/o timeout")
		gateway.On("Ping", mock.Anything).Return(pingErr).Once()

		err := gatewayCheck(gateway)(t.Context())

		assert.ErrorIs(t, err, pingErr)
	})

	t.Run("Not Configured", func(t *testing.T) {
		err := gatewayCheck(nil)(t.Context())

		assert.ErrorIs(t, err, errGatewayMissing)
	})
}
