package utils

import (
	"errors"
	"log/slog"
	"net/http"

	appErrors "github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils/response"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

func ParseAndValidate(r *http.Request, w http.ResponseWriter, dest any, validate *validator.Validate) bool {

	if err := DecodeJSONBody(r, dest); err != nil {
		slog.Warn("Invalid request", slog.String("error", err.Error()))
		response.Error(w, appErrors.BadRequestError("Invalid request body").WithError(err))
		return false
	}

	if err := validate.Struct(dest); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			slog.Warn("Validation failed", slog.String("error", validationErrs.Error()))
			response.ValidationError(w, validationErrs)
			return false
		}

		slog.Error("Unexpected validation error", slog.String("error", err.Error()))
		response.Error(w, appErrors.InternalError("Failed to validate request").WithError(err))
		return false
	}

	return true

}

// ParseProductID reads a product id path value and normalizes it once.
func ParseProductID(r *http.Request, key string) (models.ProductID, error) {
	raw := r.PathValue(key)
	if raw == "" {
		return 0, appErrors.BadRequestError("Product ID is required")
	}

	id, err := models.ParseProductID(raw)
	if err != nil {
		return 0, appErrors.BadRequestError("Invalid product ID").WithError(err)
	}

	return id, nil
}

func ParseID(r *http.Request, key string) (uuid.UUID, error) {
	raw := r.PathValue(key)
	if raw == "" {
		return uuid.Nil, appErrors.BadRequestError("ID is required")
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, appErrors.BadRequestError("Invalid ID format").WithError(err)
	}

	return id, nil
}
