package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	appErrors "github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/metrics"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	"github.com/aaravmahajanofficial/storefront-checkout/pkg/stripe"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// settlement applies a gateway verdict to an order. Confirm, the webhook and
// the expiry sweep all go through it so the ledger transition and its side
// effects happen the same way on every path.
type settlement struct {
	orders   repository.OrderRepository
	carts    repository.CartRepository
	notifier Notifier
	now      func() time.Time
}

func addressFromGateway(a *stripe.Address) *models.Address {
	if a == nil {
		return nil
	}

	return &models.Address{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// complete moves a paid order to completed and commits its stock. An order
// that was already completed is returned as is, without side effects.
func (s *settlement) complete(ctx context.Context, order *models.Order, details *stripe.SessionDetails) (*models.Order, error) {
	logger := middleware.LoggerFromContext(ctx).With(slog.String("orderId", order.ID.String()))

	ctx, span := tracer.Start(ctx, "settlement.complete", trace.WithAttributes(
		attribute.String("order.id", order.ID.String()),
		attribute.String("payment.session_id", order.PaymentSessionID),
	))
	defer span.End()

	if !order.Status.CanTransitionTo(models.OrderStatusCompleted) {
		return nil, appErrors.InvalidTransitionError("Order can no longer be completed")
	}

	completion := models.Completion{
		CustomerEmail:   details.CustomerEmail,
		CustomerName:    details.CustomerName,
		ShippingAddress: addressFromGateway(details.Address),
		PaidAt:          s.now().UTC(),
	}

	alreadyCompleted, err := s.orders.Complete(ctx, order.ID, completion)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientStock):
			metrics.RecordStockShortfall()
			logger.Error("Paid order could not be covered by stock",
				slog.String("paymentSessionId", order.PaymentSessionID),
				slog.String("error", err.Error()))

			return nil, appErrors.StockShortfallError().WithError(err)
		case errors.Is(err, repository.ErrInvalidTransition):
			return nil, appErrors.InvalidTransitionError("Order can no longer be completed").WithError(err)
		case errors.Is(err, repository.ErrNotFound):
			return nil, appErrors.NotFoundError("Order not found").WithError(err)
		default:
			return nil, appErrors.DatabaseError("Failed to complete order").WithError(err)
		}
	}

	completed, err := s.orders.GetOrderByID(ctx, order.ID)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to load order").WithError(err)
	}

	if alreadyCompleted {
		logger.Info("Order was already completed")
		return completed, nil
	}

	if err := s.carts.DeleteCart(ctx, completed.SessionID); err != nil {
		logger.Warn("Failed to clear cart after payment", slog.String("error", err.Error()))
	}

	logger.Info("Order completed", slog.String("total", completed.TotalAmount.StringFixed(2)))
	s.notifier.OrderCompleted(ctx, completed)

	return completed, nil
}

// fail moves a pending order to failed. Orders already in a terminal state
// are rejected without touching the ledger.
func (s *settlement) fail(ctx context.Context, order *models.Order) error {
	if !order.Status.CanTransitionTo(models.OrderStatusFailed) {
		return appErrors.InvalidTransitionError("Order is no longer pending")
	}

	if err := s.orders.MarkFailed(ctx, order.ID); err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			return appErrors.InvalidTransitionError("Order is no longer pending").WithError(err)
		}

		return appErrors.DatabaseError("Failed to update order").WithError(err)
	}

	order.Status = models.OrderStatusFailed
	s.notifier.OrderFailed(ctx, order)

	return nil
}
