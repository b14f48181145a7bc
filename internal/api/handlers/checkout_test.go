package handlers_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/handlers"
	appErrors "github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/services/mocks"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/testutils"
	"github.com/aaravmahajanofficial/storefront-checkout/pkg/stripe"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupCheckoutTest() (*mocks.CheckoutService, *handlers.CheckoutHandler) {
	mockCheckoutService := new(mocks.CheckoutService)

	return mockCheckoutService, handlers.NewCheckoutHandler(mockCheckoutService)
}

func TestStartCheckout(t *testing.T) {
	order := &models.Order{
		ID:          uuid.New(),
		Status:      models.OrderStatusPending,
		TotalAmount: decimal.RequireFromString("39.98"),
		Currency:    "usd",
	}

	t.Run("Guest Without Body", func(t *testing.T) {
		mockCheckoutService, checkoutHandler := setupCheckoutTest()
		mockCheckoutService.On("Initiate", mock.Anything, testutils.GuestCaller(), &models.InitiateCheckoutRequest{}).
			Return(&models.CheckoutResponse{Order: order, State: models.CheckoutStateAwaitingPayment, RedirectURL: "https://checkout.stripe.test/cs_1"}, nil).Once()

		req := testutils.CreateTestRequestWithoutContext(http.MethodPost, "/api/v1/checkout", nil, nil)
		rr := httptest.NewRecorder()

		checkoutHandler.StartCheckout().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var result models.CheckoutResponse
		decodeData(t, decodeResponse(t, rr), &result)
		assert.Equal(t, models.CheckoutStateAwaitingPayment, result.State)
		assert.Equal(t, "https://checkout.stripe.test/cs_1", result.RedirectURL)
		assert.Equal(t, order.ID, result.Order.ID)

		mockCheckoutService.AssertExpectations(t)
	})

	t.Run("Signed In With Address", func(t *testing.T) {
		mockCheckoutService, checkoutHandler := setupCheckoutTest()
		userID := uuid.New()

		mockCheckoutService.On("Initiate", mock.Anything, testutils.UserCaller(userID), mock.MatchedBy(func(req *models.InitiateCheckoutRequest) bool {
			return req.ShippingAddress != nil && req.ShippingAddress.City == "London"
		})).Return(&models.CheckoutResponse{Order: order, State: models.CheckoutStateAwaitingPayment}, nil).Once()

		body := `{"shipping_address": {"line1": "1 Main St", "city": "London", "postal_code": "N1", "country": "GB"}}`
		req := testutils.CreateTestRequestWithContext(http.MethodPost, "/api/v1/checkout", strings.NewReader(body), userID, nil)
		rr := httptest.NewRecorder()

		checkoutHandler.StartCheckout().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		mockCheckoutService.AssertExpectations(t)
	})

	t.Run("Invalid Country", func(t *testing.T) {
		_, checkoutHandler := setupCheckoutTest()

		body := `{"shipping_address": {"line1": "1 Main St", "city": "London", "postal_code": "N1", "country": "Britain"}}`
		req := testutils.CreateTestRequestWithoutContext(http.MethodPost, "/api/v1/checkout", strings.NewReader(body), nil)
		rr := httptest.NewRecorder()

		checkoutHandler.StartCheckout().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, appErrors.ErrCodeValidation, decodeResponse(t, rr).Error.Code)
	})

	t.Run("Empty Cart", func(t *testing.T) {
		mockCheckoutService, checkoutHandler := setupCheckoutTest()
		mockCheckoutService.On("Initiate", mock.Anything, testutils.GuestCaller(), mock.Anything).Return(nil, appErrors.EmptyCartError()).Once()

		req := testutils.CreateTestRequestWithoutContext(http.MethodPost, "/api/v1/checkout", nil, nil)
		rr := httptest.NewRecorder()

		checkoutHandler.StartCheckout().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		resp := decodeResponse(t, rr)
		assert.Equal(t, appErrors.ErrCodeEmptyCart, resp.Error.Code)
		assert.Equal(t, "Your cart is empty", resp.Error.Message)
	})

	t.Run("Gateway Unavailable Hides Internals", func(t *testing.T) {
		mockCheckoutService, checkoutHandler := setupCheckoutTest()
		mockCheckoutService.On("Initiate", mock.Anything, testutils.GuestCaller(), mock.Anything).
			Return(nil, appErrors.GatewayUnavailableError().WithError(errors.New("dial tcp 10.0.0.1:443: i/o timeout"))).Once()

		req := testutils.CreateTestRequestWithoutContext(http.MethodPost, "/api/v1/checkout", nil, nil)
		rr := httptest.NewRecorder()

		checkoutHandler.StartCheckout().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.NotContains(t, rr.Body.String(), "10.0.0.1")
	})
}

func TestConfirmCheckout(t *testing.T) {
	t.Run("Completed", func(t *testing.T) {
		mockCheckoutService, checkoutHandler := setupCheckoutTest()
		userID := uuid.New()
		order := &models.Order{ID: uuid.New(), Status: models.OrderStatusCompleted}

		mockCheckoutService.On("Confirm", mock.Anything, testutils.UserCaller(userID)).
			Return(&models.CheckoutResponse{Order: order, State: models.CheckoutStateCompleted}, nil).Once()

		req := testutils.CreateTestRequestWithContext(http.MethodPost, "/api/v1/checkout/confirm", nil, userID, nil)
		rr := httptest.NewRecorder()

		checkoutHandler.ConfirmCheckout().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var result models.CheckoutResponse
		decodeData(t, decodeResponse(t, rr), &result)
		assert.Equal(t, models.CheckoutStateCompleted, result.State)
		assert.Equal(t, models.OrderStatusCompleted, result.Order.Status)
	})

	t.Run("Payment Not Confirmed", func(t *testing.T) {
		mockCheckoutService, checkoutHandler := setupCheckoutTest()
		mockCheckoutService.On("Confirm", mock.Anything, testutils.GuestCaller()).Return(nil, appErrors.PaymentNotConfirmedError()).Once()

		req := testutils.CreateTestRequestWithoutContext(http.MethodPost, "/api/v1/checkout/confirm", nil, nil)
		rr := httptest.NewRecorder()

		checkoutHandler.ConfirmCheckout().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusPaymentRequired, rr.Code)
		assert.Equal(t, appErrors.ErrCodePaymentNotConfirmed, decodeResponse(t, rr).Error.Code)
	})

	t.Run("No Recent Order", func(t *testing.T) {
		mockCheckoutService, checkoutHandler := setupCheckoutTest()
		mockCheckoutService.On("Confirm", mock.Anything, testutils.GuestCaller()).Return(nil, appErrors.NoRecentOrderError()).Once()

		req := testutils.CreateTestRequestWithoutContext(http.MethodPost, "/api/v1/checkout/confirm", nil, nil)
		rr := httptest.NewRecorder()

		checkoutHandler.ConfirmCheckout().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestHandleStripeWebhook(t *testing.T) {
	payload := `{"id":"evt_1","type":"checkout.session.completed"}`

	t.Run("Processed", func(t *testing.T) {
		mockCheckoutService, checkoutHandler := setupCheckoutTest()
		mockCheckoutService.On("HandleWebhook", mock.Anything, []byte(payload), "t=1,v1=abc").
			Return(&stripe.Event{ID: "evt_1", Type: stripe.EventCheckoutCompleted, SessionID: "cs_1"}, nil).Once()

		req := testutils.CreateTestRequestWithoutContext(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(payload), nil)
		req.Header.Set("Stripe-Signature", "t=1,v1=abc")
		rr := httptest.NewRecorder()

		checkoutHandler.HandleStripeWebhook().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		mockCheckoutService.AssertExpectations(t)
	})

	t.Run("Missing Signature", func(t *testing.T) {
		_, checkoutHandler := setupCheckoutTest()

		req := testutils.CreateTestRequestWithoutContext(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(payload), nil)
		rr := httptest.NewRecorder()

		checkoutHandler.HandleStripeWebhook().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Bad Signature", func(t *testing.T) {
		mockCheckoutService, checkoutHandler := setupCheckoutTest()
		mockCheckoutService.On("HandleWebhook", mock.Anything, []byte(payload), "t=1,v1=bad").
			Return(nil, appErrors.BadRequestError("Webhook signature verification failed")).Once()

		req := testutils.CreateTestRequestWithoutContext(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(payload), nil)
		req.Header.Set("Stripe-Signature", "t=1,v1=bad")
		rr := httptest.NewRecorder()

		checkoutHandler.HandleStripeWebhook().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		resp := decodeResponse(t, rr)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "Webhook signature verification failed", resp.Error.Message)
	})
}
