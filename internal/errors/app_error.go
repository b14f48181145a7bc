package errors

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"
)

type AppError struct {
	Code       string
	Message    string
	Detail     string
	StatusCode int
	Meta       map[string]any
	Err        error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail

	return e
}

// WithMeta attaches a machine-readable field that is returned to the client.
func (e *AppError) WithMeta(key string, value any) *AppError {
	if e.Meta == nil {
		e.Meta = make(map[string]any)
	}
	e.Meta[key] = value

	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err

	return e
}

const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeInternal            = "INTERNAL_ERROR"
	ErrCodeDatabaseError       = "DATABASE_ERROR"
	ErrCodeInsufficientStock   = "INSUFFICIENT_STOCK"
	ErrCodeNotInCart           = "NOT_IN_CART"
	ErrCodeEmptyCart           = "EMPTY_CART"
	ErrCodeNoRecentOrder       = "NO_RECENT_ORDER"
	ErrCodePaymentNotConfirmed = "PAYMENT_NOT_CONFIRMED"
	ErrCodeGatewayUnavailable  = "GATEWAY_UNAVAILABLE"
	ErrCodeInvalidTransition   = "INVALID_TRANSITION"
	ErrCodeTooManyRequests     = "TOO_MANY_REQUESTS"
)

func ValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message, http.StatusBadRequest)
}

func BadRequestError(message string) *AppError {
	return NewAppError(ErrCodeBadRequest, message, http.StatusBadRequest)
}

func NotFoundError(message string) *AppError {
	return NewAppError(ErrCodeNotFound, message, http.StatusNotFound)
}

func UnauthorizedError(message string) *AppError {
	return NewAppError(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

func InternalError(message string) *AppError {
	return NewAppError(ErrCodeInternal, message, http.StatusInternalServerError)
}

func DatabaseError(message string) *AppError {
	return NewAppError(ErrCodeDatabaseError, message, http.StatusInternalServerError)
}

// InsufficientStockError reports how many more units can still be added.
// A room of zero means the cart already holds the whole stock.
func InsufficientStockError(room int64) *AppError {
	if room <= 0 {
		return NewAppError(ErrCodeInsufficientStock,
			"Cannot add more items. You already have the maximum available stock in your cart.",
			http.StatusConflict).WithMeta("room", int64(0))
	}

	return NewAppError(ErrCodeInsufficientStock,
		fmt.Sprintf("Only %d more items available.", room),
		http.StatusConflict).WithMeta("room", room)
}

// StockUnavailableError is used when a full quantity (not an increment) exceeds stock.
func StockUnavailableError(productName string, available int64) *AppError {
	return NewAppError(ErrCodeInsufficientStock,
		fmt.Sprintf("Only %d items of %s available in stock.", available, productName),
		http.StatusConflict).WithMeta("available", available)
}

// StockShortfallError is returned when a paid order can no longer be covered
// by stock. The order stays pending for manual follow-up.
func StockShortfallError() *AppError {
	return NewAppError(ErrCodeInsufficientStock,
		"Payment was received but some items are no longer in stock. Our team will contact you.",
		http.StatusConflict)
}

func NotInCartError(message string) *AppError {
	return NewAppError(ErrCodeNotInCart, message, http.StatusNotFound)
}

func EmptyCartError() *AppError {
	return NewAppError(ErrCodeEmptyCart, "Your cart is empty", http.StatusBadRequest)
}

func NoRecentOrderError() *AppError {
	return NewAppError(ErrCodeNoRecentOrder, "No recent order awaiting confirmation", http.StatusNotFound)
}

func PaymentNotConfirmedError() *AppError {
	return NewAppError(ErrCodePaymentNotConfirmed, "Payment has not been confirmed yet", http.StatusPaymentRequired)
}

func GatewayUnavailableError() *AppError {
	return NewAppError(ErrCodeGatewayUnavailable, "Payment service is unavailable, please try again", http.StatusServiceUnavailable)
}

func InvalidTransitionError(message string) *AppError {
	return NewAppError(ErrCodeInvalidTransition, message, http.StatusConflict)
}

func TooManyRequestsError(retryAfter time.Duration) *AppError {
	seconds := int64(math.Ceil(retryAfter.Seconds()))

	return NewAppError(ErrCodeTooManyRequests,
		fmt.Sprintf("Too many attempts, try again in %d seconds", seconds),
		http.StatusTooManyRequests).WithMeta("retry_after", seconds)
}

func IsAppError(err error) (*AppError, bool) {
	var appError *AppError

	if errors.As(err, &appError) {
		return appError, true
	}

	return nil, false
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code string) bool {
	appErr, ok := IsAppError(err)

	return ok && appErr.Code == code
}

// field validation error.
func AddValidationError(field, reason string) *AppError {
	return ValidationError(fmt.Sprintf("Invalid field '%s': %s", field, reason))
}
