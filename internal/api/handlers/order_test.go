package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/handlers"
	appErrors "github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/services/mocks"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestGetOrder(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mockOrderService := new(mocks.OrderService)
		orderHandler := handlers.NewOrderHandler(mockOrderService)
		mockOrderService.On("GetOrder", mock.Anything, testutils.UserCaller(userID), orderID).
			Return(&models.Order{ID: orderID, UserID: &userID, Status: models.OrderStatusCompleted}, nil).Once()

		req := testutils.CreateTestRequestWithContext(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil, userID,
			map[string]string{"id": orderID.String()})
		rr := httptest.NewRecorder()

		orderHandler.GetOrder().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var got models.Order
		decodeData(t, decodeResponse(t, rr), &got)
		assert.Equal(t, orderID, got.ID)
		assert.Equal(t, models.OrderStatusCompleted, got.Status)

		mockOrderService.AssertExpectations(t)
	})

	t.Run("Invalid ID", func(t *testing.T) {
		orderHandler := handlers.NewOrderHandler(new(mocks.OrderService))

		req := testutils.CreateTestRequestWithContext(http.MethodGet, "/api/v1/orders/nope", nil, userID, map[string]string{"id": "nope"})
		rr := httptest.NewRecorder()

		orderHandler.GetOrder().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Someone Elses Order", func(t *testing.T) {
		mockOrderService := new(mocks.OrderService)
		orderHandler := handlers.NewOrderHandler(mockOrderService)
		mockOrderService.On("GetOrder", mock.Anything, testutils.UserCaller(userID), orderID).
			Return(nil, appErrors.NotFoundError("Order not found")).Once()

		req := testutils.CreateTestRequestWithContext(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil, userID,
			map[string]string{"id": orderID.String()})
		rr := httptest.NewRecorder()

		orderHandler.GetOrder().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestListOrders(t *testing.T) {
	mockOrderService := new(mocks.OrderService)
	orderHandler := handlers.NewOrderHandler(mockOrderService)
	mockOrderService.On("ListOrders", mock.Anything, testutils.GuestCaller(), 1, 10).
		Return([]*models.Order{{ID: uuid.New()}, {ID: uuid.New()}}, 2, nil).Once()

	req := testutils.CreateTestRequestWithoutContext(http.MethodGet, "/api/v1/orders", nil, nil)
	rr := httptest.NewRecorder()

	orderHandler.ListOrders().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var page struct {
		Orders []models.Order `json:"orders"`
		Total  int            `json:"total"`
	}
	decodeData(t, decodeResponse(t, rr), &page)
	assert.Len(t, page.Orders, 2)
	assert.Equal(t, 2, page.Total)

	mockOrderService.AssertExpectations(t)
}
