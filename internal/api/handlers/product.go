package handlers

import (
	"log/slog"
	"net/http"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	service "github.com/aaravmahajanofficial/storefront-checkout/internal/services"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils/response"
)

type ProductHandler struct {
	productService service.ProductService
}

func NewProductHandler(productService service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// GetProduct godoc
//
//	@Summary		Get a product
//	@Tags			Products
//	@Produce		json
//	@Param			id	path		int						true	"Product ID"
//	@Success		200	{object}	models.Product			"Product"
//	@Failure		400	{object}	response.ErrorResponse	"Invalid product ID"
//	@Failure		404	{object}	response.ErrorResponse	"Product not found"
//	@Router			/products/{id} [get]
func (h *ProductHandler) GetProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := utils.ParseProductID(r, "id")
		if err != nil {
			response.Error(w, err)
			return
		}

		product, err := h.productService.GetProduct(r.Context(), id)
		if err != nil {
			middleware.LoggerFromContext(r.Context()).Warn("Failed to get product",
				slog.String("productId", id.String()),
				slog.Any("error", err))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, product)
	}
}

// ListProducts godoc
//
//	@Summary		List products
//	@Tags			Products
//	@Produce		json
//	@Param			page	query		int						false	"Page number"	default(1)
//	@Param			size	query		int						false	"Page size"		default(10)
//	@Success		200		{object}	map[string]any			"Page of products"
//	@Failure		500		{object}	response.ErrorResponse	"Internal server error"
//	@Router			/products [get]
func (h *ProductHandler) ListProducts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, size := utils.Pagination(r, 10, 100)

		products, total, err := h.productService.ListProducts(r.Context(), page, size)
		if err != nil {
			middleware.LoggerFromContext(r.Context()).Error("Failed to fetch products", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, map[string]any{
			"products": products,
			"total":    total,
			"page":     page,
			"size":     size,
		})
	}
}
