package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/go-playground/validator/v10"
)

type APIResponse struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details []string       `json:"details,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// interface {} == any
func WriteJson(w http.ResponseWriter, statusCode int, data any) error {

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data) //struct to json
}

func Success(w http.ResponseWriter, statusCode int, data any) {
	response := APIResponse{
		Success: true,
		Data:    data,
	}

	WriteJson(w, statusCode, response)
}

func Error(w http.ResponseWriter, err error) {

	var statusCode int
	var errorResponse *ErrorResponse

	if appErr, ok := errors.IsAppError(err); ok {
		statusCode = appErr.StatusCode
		errorResponse = &ErrorResponse{
			Code:    appErr.Code,
			Message: appErr.Message,
			Meta:    appErr.Meta,
		}

		if appErr.Detail != "" {
			errorResponse.Details = []string{appErr.Detail}
		}

	} else {

		statusCode = http.StatusInternalServerError
		errorResponse = &ErrorResponse{
			Code:    errors.ErrCodeInternal,
			Message: "An unexpected error occurred",
		}

	}

	response := APIResponse{
		Success: false,
		Error:   errorResponse,
	}

	WriteJson(w, statusCode, response)
}

// ValidationError lists one message per failed field.
func ValidationError(w http.ResponseWriter, errs validator.ValidationErrors) {

	errMsgs := make([]string, 0, len(errs))
	for _, err := range errs {
		errMsgs = append(errMsgs, fieldMessage(err))
	}

	WriteJson(w, http.StatusBadRequest, APIResponse{
		Success: false,
		Error: &ErrorResponse{
			Code:    errors.ErrCodeValidation,
			Message: "Validation failed",
			Details: errMsgs,
		},
	})
}

func fieldMessage(err validator.FieldError) string {
	unit := ""
	if err.Kind() == reflect.String {
		unit = " characters"
	}

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("Field %s is required", err.Field())
	case "min":
		return fmt.Sprintf("Field %s must be at least %s%s", err.Field(), err.Param(), unit)
	case "max":
		return fmt.Sprintf("Field %s must be at most %s%s", err.Field(), err.Param(), unit)
	case "gt":
		return fmt.Sprintf("Field %s must be greater than %s", err.Field(), err.Param())
	case "iso3166_1_alpha2":
		return fmt.Sprintf("Field %s must be a two-letter country code", err.Field())
	default:
		return fmt.Sprintf("Field %s is invalid: %s=%s", err.Field(), err.Tag(), err.Param())
	}
}
