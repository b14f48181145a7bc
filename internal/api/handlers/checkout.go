package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	service "github.com/aaravmahajanofficial/storefront-checkout/internal/services"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

const maxWebhookBytes = 64 << 10

type CheckoutHandler struct {
	checkoutService service.CheckoutService
	validator       *validator.Validate
}

func NewCheckoutHandler(checkoutService service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService, validator: validator.New()}
}

// StartCheckout godoc
//
//	@Summary		Start checkout
//	@Description	Creates a pending order from the cart and opens a hosted payment page. The cart is kept until payment is confirmed.
//	@Tags			Checkout
//	@Accept			json
//	@Produce		json
//	@Param			checkout	body		models.InitiateCheckoutRequest	false	"Optional shipping address"
//	@Success		201			{object}	models.CheckoutResponse			"Order awaiting payment with the redirect URL"
//	@Failure		400			{object}	response.ErrorResponse			"Empty cart or validation error"
//	@Failure		409			{object}	response.ErrorResponse			"Insufficient stock"
//	@Failure		429			{object}	response.ErrorResponse			"Too many checkout attempts"
//	@Failure		503			{object}	response.ErrorResponse			"Payment service unavailable"
//	@Router			/checkout [post]
func (h *CheckoutHandler) StartCheckout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		var req models.InitiateCheckoutRequest
		if r.ContentLength > 0 && !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid checkout input")
			return
		}

		result, err := h.checkoutService.Initiate(r.Context(), middleware.CallerFromContext(r.Context()), &req)
		if err != nil {
			logger.Warn("Checkout could not be started", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Checkout started", slog.String("orderId", result.Order.ID.String()))
		response.Success(w, http.StatusCreated, result)
	}
}

// ConfirmCheckout godoc
//
//	@Summary		Confirm checkout
//	@Description	Completes the caller's most recent order once the payment provider reports it as paid, then clears the cart.
//	@Tags			Checkout
//	@Produce		json
//	@Success		200	{object}	models.CheckoutResponse	"Completed order"
//	@Failure		401	{object}	response.ErrorResponse	"No session or user"
//	@Failure		402	{object}	response.ErrorResponse	"Payment not confirmed"
//	@Failure		404	{object}	response.ErrorResponse	"No recent order"
//	@Failure		409	{object}	response.ErrorResponse	"Stock shortfall after payment"
//	@Failure		503	{object}	response.ErrorResponse	"Payment service unavailable"
//	@Router			/checkout/confirm [post]
func (h *CheckoutHandler) ConfirmCheckout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		result, err := h.checkoutService.Confirm(r.Context(), middleware.CallerFromContext(r.Context()))
		if err != nil {
			logger.Warn("Checkout could not be confirmed", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, result)
	}
}

// HandleStripeWebhook godoc
//
//	@Summary		Stripe webhook
//	@Description	Reconciles orders from signed checkout session events.
//	@Tags			Checkout
//	@Accept			json
//	@Produce		json
//	@Param			Stripe-Signature	header		string					true	"Stripe signature"
//	@Success		200					{object}	map[string]bool			"Event received"
//	@Failure		400					{object}	response.ErrorResponse	"Invalid payload or signature"
//	@Failure		503					{object}	response.ErrorResponse	"Retry later"
//	@Router			/payments/webhook [post]
func (h *CheckoutHandler) HandleStripeWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
		if err != nil {
			logger.Error("Error reading webhook body", slog.String("error", err.Error()))
			response.Error(w, errors.BadRequestError("Failed to read request body").WithError(err))
			return
		}

		signature := r.Header.Get("Stripe-Signature")
		if signature == "" {
			logger.Warn("Missing Stripe signature")
			response.Error(w, errors.BadRequestError("Stripe Signature is required"))
			return
		}

		event, err := h.checkoutService.HandleWebhook(r.Context(), payload, signature)
		if err != nil {
			logger.Error("Failed to process payment webhook", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Payment webhook processed", slog.String("eventId", event.ID), slog.String("eventType", event.Type))
		response.Success(w, http.StatusOK, map[string]bool{"received": true})
	}
}
