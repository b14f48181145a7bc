package handlers

import (
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

type CartHandler struct {
	cartService service.CartService
	validator   *validator.Validate
}

func NewCartHandler(cartService service.CartService) *CartHandler {
	return &CartHandler{cartService: cartService, validator: validator.New()}
}

// sessionFrom reads the cart session set by the session middleware.
func sessionFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		middleware.LoggerFromContext(r.Context()).Warn("Request without a session")
		response.Error(w, errors.BadRequestError("Session is required"))

		return "", false
	}

	return sessionID, true
}

// GetCart godoc
//
//	@Summary		View the cart
//	@Description	Returns the items of the current session's cart with the computed total and item count.
//	@Tags			Cart
//	@Produce		json
//	@Success		200	{object}	models.CartSnapshot		"Current cart"
//	@Failure		400	{object}	response.ErrorResponse	"Missing session"
//	@Failure		500	{object}	response.ErrorResponse	"Internal server error"
//	@Router			/cart [get]
func (h *CartHandler) GetCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		snapshot, err := h.cartService.Snapshot(r.Context(), sessionID)
		if err != nil {
			middleware.LoggerFromContext(r.Context()).Error("Failed to load cart", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, snapshot)
	}
}

// AddItem godoc
//
//	@Summary		Add a product to the cart
//	@Description	Adds quantity units of a product, merging with an existing line. Fails when the cart would exceed the available stock.
//	@Tags			Cart
//	@Accept			json
//	@Produce		json
//	@Param			item	body		models.AddItemRequest	true	"Product and quantity"
//	@Success		200		{object}	models.CartSnapshot		"Updated cart"
//	@Failure		400		{object}	response.ErrorResponse	"Validation error"
//	@Failure		404		{object}	response.ErrorResponse	"Product not found"
//	@Failure		409		{object}	response.ErrorResponse	"Insufficient stock"
//	@Failure		500		{object}	response.ErrorResponse	"Internal server error"
//	@Router			/cart/items [post]
func (h *CartHandler) AddItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		sessionID, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		var req models.AddItemRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid add item input")
			return
		}

		snapshot, err := h.cartService.Add(r.Context(), sessionID, req.ProductID, req.Quantity)
		if err != nil {
			logger.Warn("Failed to add item", slog.String("productId", req.ProductID.String()), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Item added to cart", slog.String("productId", req.ProductID.String()), slog.Int64("quantity", req.Quantity))
		response.Success(w, http.StatusOK, snapshot)
	}
}

// UpdateItem godoc
//
//	@Summary		Set the quantity of a cart line
//	@Description	Replaces the quantity of a product already in the cart.
//	@Tags			Cart
//	@Accept			json
//	@Produce		json
//	@Param			id			path		int							true	"Product ID"
//	@Param			quantity	body		models.UpdateQuantityRequest	true	"New quantity"
//	@Success		200			{object}	models.CartSnapshot			"Updated cart"
//	@Failure		400			{object}	response.ErrorResponse		"Validation error"
//	@Failure		404			{object}	response.ErrorResponse		"Product not found or not in cart"
//	@Failure		409			{object}	response.ErrorResponse		"Insufficient stock"
//	@Router			/cart/items/{id} [patch]
func (h *CartHandler) UpdateItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		sessionID, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		productID, err := utils.ParseProductID(r, "id")
		if err != nil {
			response.Error(w, err)
			return
		}

		var req models.UpdateQuantityRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid update quantity input")
			return
		}

		snapshot, err := h.cartService.SetQuantity(r.Context(), sessionID, productID, req.Quantity)
		if err != nil {
			logger.Warn("Failed to update item", slog.String("productId", productID.String()), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, snapshot)
	}
}

// RemoveItem godoc
//
//	@Summary		Remove a product from the cart
//	@Description	Removes the line of the given product. Removing a product that is not in the cart succeeds.
//	@Tags			Cart
//	@Produce		json
//	@Param			id	path		int						true	"Product ID"
//	@Success		200	{object}	models.CartSnapshot		"Updated cart"
//	@Failure		400	{object}	response.ErrorResponse	"Invalid product ID"
//	@Router			/cart/items/{id} [delete]
func (h *CartHandler) RemoveItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		productID, err := utils.ParseProductID(r, "id")
		if err != nil {
			response.Error(w, err)
			return
		}

		snapshot, err := h.cartService.Remove(r.Context(), sessionID, productID)
		if err != nil {
			middleware.LoggerFromContext(r.Context()).Error("Failed to remove item", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, snapshot)
	}
}

// ClearCart godoc
//
//	@Summary		Empty the cart
//	@Tags			Cart
//	@Success		204	"Cart cleared"
//	@Failure		500	{object}	response.ErrorResponse	"Internal server error"
//	@Router			/cart [delete]
func (h *CartHandler) ClearCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		if err := h.cartService.Clear(r.Context(), sessionID); err != nil {
			middleware.LoggerFromContext(r.Context()).Error("Failed to clear cart", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
