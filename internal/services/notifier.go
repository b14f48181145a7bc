package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/events"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/aaravmahajanofficial/storefront-checkout/pkg/sendGrid"
)

// notifyTimeout bounds each receipt send and event publish.
const notifyTimeout = 5 * time.Second

// Notifier fans out the side effects of an order reaching a terminal state.
// Failures are logged and never returned: the ledger is already committed.
type Notifier interface {
	OrderCompleted(ctx context.Context, order *models.Order)
	OrderFailed(ctx context.Context, order *models.Order)
}

type orderNotifier struct {
	email     sendGrid.EmailService
	publisher events.Publisher
}

// NewNotifier accepts a nil email service when receipts are disabled.
func NewNotifier(email sendGrid.EmailService, publisher events.Publisher) Notifier {
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}

	return &orderNotifier{email: email, publisher: publisher}
}

func (n *orderNotifier) OrderCompleted(ctx context.Context, order *models.Order) {
	logger := middleware.LoggerFromContext(ctx)

	if n.email != nil && order.CustomerEmail != "" {
		sendCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
		err := n.email.SendOrderReceipt(sendCtx, order)
		cancel()

		if err != nil {
			logger.Warn("Failed to send order receipt",
				slog.String("orderId", order.ID.String()),
				slog.String("error", err.Error()))
		}
	}

	n.publish(ctx, events.NewOrderEvent(events.OrderCompleted, order))
}

func (n *orderNotifier) OrderFailed(ctx context.Context, order *models.Order) {
	n.publish(ctx, events.NewOrderEvent(events.OrderFailed, order))
}

func (n *orderNotifier) publish(ctx context.Context, event *events.OrderEvent) {
	if id := middleware.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	publishCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	if err := n.publisher.PublishOrderEvent(publishCtx, event); err != nil {
		middleware.LoggerFromContext(ctx).Warn("Failed to publish order event",
			slog.String("orderId", event.OrderID),
			slog.String("eventType", event.Type),
			slog.String("error", err.Error()))
	}
}
