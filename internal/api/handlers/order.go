package handlers

import (
	"log/slog"
	"net/http"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	service "github.com/aaravmahajanofficial/storefront-checkout/internal/services"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils/response"
)

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// GetOrder godoc
//
//	@Summary		Get an order by ID
//	@Description	Retrieves one of the caller's orders. Orders of other callers are reported as not found.
//	@Tags			Orders
//	@Produce		json
//	@Param			id	path		string					true	"Order ID (UUID)"	Format(uuid)
//	@Success		200	{object}	models.Order			"Order"
//	@Failure		400	{object}	response.ErrorResponse	"Invalid order ID format"
//	@Failure		401	{object}	response.ErrorResponse	"No session or user"
//	@Failure		404	{object}	response.ErrorResponse	"Order not found"
//	@Security		BearerAuth
//	@Router			/orders/{id} [get]
func (h *OrderHandler) GetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		id, err := utils.ParseID(r, "id")
		if err != nil {
			response.Error(w, err)
			return
		}

		order, err := h.orderService.GetOrder(r.Context(), middleware.CallerFromContext(r.Context()), id)
		if err != nil {
			logger.Warn("Failed to get order", slog.String("orderId", id.String()), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, order)
	}
}

// ListOrders godoc
//
//	@Summary		List the caller's orders
//	@Tags			Orders
//	@Produce		json
//	@Param			page	query		int						false	"Page number"	default(1)
//	@Param			size	query		int						false	"Page size"		default(10)
//	@Success		200		{object}	map[string]any			"Page of orders"
//	@Failure		401		{object}	response.ErrorResponse	"No session or user"
//	@Security		BearerAuth
//	@Router			/orders [get]
func (h *OrderHandler) ListOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, size := utils.Pagination(r, 10, 100)

		orders, total, err := h.orderService.ListOrders(r.Context(), middleware.CallerFromContext(r.Context()), page, size)
		if err != nil {
			middleware.LoggerFromContext(r.Context()).Warn("Failed to list orders", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, map[string]any{
			"orders": orders,
			"total":  total,
			"page":   page,
			"size":   size,
		})
	}
}
