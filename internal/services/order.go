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
	"github.com/google/uuid"
)

type OrderService interface {
	GetOrder(ctx context.Context, caller models.Caller, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, caller models.Caller, page, size int) ([]*models.Order, int, error)
	Sweep(ctx context.Context, olderThan time.Duration, limit int) (*models.SweepResult, error)
}

type orderService struct {
	orders  repository.OrderRepository
	gateway stripe.Client
	settle  *settlement
	now     func() time.Time
}

func NewOrderService(orders repository.OrderRepository, carts repository.CartRepository, gateway stripe.Client, notifier Notifier) OrderService {
	return newOrderService(orders, carts, gateway, notifier, time.Now)
}

func newOrderService(orders repository.OrderRepository, carts repository.CartRepository, gateway stripe.Client, notifier Notifier, now func() time.Time) *orderService {
	return &orderService{
		orders:  orders,
		gateway: gateway,
		settle:  &settlement{orders: orders, carts: carts, notifier: notifier, now: now},
		now:     now,
	}
}

func ownedBy(order *models.Order, caller models.Caller) bool {
	if caller.UserID != nil && order.UserID != nil {
		return *caller.UserID == *order.UserID
	}

	return caller.SessionID != "" && order.SessionID == caller.SessionID
}

// GetOrder hides orders of other callers behind a not found error.
func (s *orderService) GetOrder(ctx context.Context, caller models.Caller, id uuid.UUID) (*models.Order, error) {
	if caller.IsAnonymous() {
		return nil, appErrors.UnauthorizedError("Authentication required")
	}

	order, err := s.orders.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.NotFoundError("Order not found").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to fetch order").WithError(err)
	}

	if !ownedBy(order, caller) {
		return nil, appErrors.NotFoundError("Order not found")
	}

	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, caller models.Caller, page, size int) ([]*models.Order, int, error) {
	if caller.IsAnonymous() {
		return nil, 0, appErrors.UnauthorizedError("Authentication required")
	}

	orders, total, err := s.orders.ListOrders(ctx, caller, page, size)
	if err != nil {
		return nil, 0, appErrors.DatabaseError("Failed to fetch orders").WithError(err)
	}

	return orders, total, nil
}

// Sweep settles pending orders older than olderThan. Orders the gateway
// reports as paid are completed; the rest have their payment session expired
// and are marked failed. Orders whose session cannot be queried or expired
// are skipped and picked up by the next run.
func (s *orderService) Sweep(ctx context.Context, olderThan time.Duration, limit int) (*models.SweepResult, error) {
	logger := middleware.LoggerFromContext(ctx)
	result := &models.SweepResult{}

	stale, err := s.orders.ListStalePending(ctx, s.now().Add(-olderThan), limit)
	if err != nil {
		return result, appErrors.DatabaseError("Failed to list pending orders").WithError(err)
	}

	for _, order := range stale {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		result.Scanned++

		outcome := s.sweepOne(ctx, logger.With(slog.String("orderId", order.ID.String())), order)
		metrics.RecordCheckout(metrics.OpSweep, outcome)

		switch outcome {
		case "completed":
			result.Completed++
		case "failed":
			result.Failed++
		default:
			result.Skipped++
		}
	}

	logger.Info("Sweep finished",
		slog.Int("scanned", result.Scanned),
		slog.Int("completed", result.Completed),
		slog.Int("failed", result.Failed),
		slog.Int("skipped", result.Skipped))

	return result, nil
}

func (s *orderService) sweepOne(ctx context.Context, logger *slog.Logger, order *models.Order) string {
	if order.PaymentSessionID != "" {
		details, err := s.gateway.GetCheckoutSession(ctx, order.PaymentSessionID)
		if err != nil {
			logger.Warn("Skipping order, payment session unavailable", slog.String("error", err.Error()))
			return "skipped"
		}

		if details.IsPaid() {
			if _, err := s.settle.complete(ctx, order, details); err != nil {
				logger.Error("Failed to complete paid order", slog.String("error", err.Error()))
				return "skipped"
			}

			return "completed"
		}

		if details.Status == stripe.SessionStatusOpen {
			if err := s.gateway.ExpireCheckoutSession(ctx, order.PaymentSessionID); err != nil {
				logger.Warn("Skipping order, payment session could not be expired", slog.String("error", err.Error()))
				return "skipped"
			}
		}
	}

	if err := s.settle.fail(ctx, order); err != nil {
		logger.Warn("Failed to mark order as failed", slog.String("error", err.Error()))
		return "skipped"
	}

	return "failed"
}
