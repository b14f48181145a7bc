package events

import (
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	OrderCompleted = "order.completed"
	OrderFailed    = "order.failed"
)

type OrderLine struct {
	ProductID models.ProductID `json:"product_id"`
	Quantity  int64            `json:"quantity"`
}

// OrderEvent is the payload published when an order reaches a terminal state.
type OrderEvent struct {
	EventID       string             `json:"event_id"`
	Type          string             `json:"type"`
	OrderID       string             `json:"order_id"`
	Status        models.OrderStatus `json:"status"`
	TotalAmount   decimal.Decimal    `json:"total_amount"`
	Currency      string             `json:"currency"`
	Items         []OrderLine        `json:"items"`
	OccurredAt    time.Time          `json:"occurred_at"`
	CorrelationID string             `json:"correlation_id,omitempty"`
}

func NewOrderEvent(eventType string, order *models.Order) *OrderEvent {
	lines := make([]OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, OrderLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	return &OrderEvent{
		EventID:     uuid.NewString(),
		Type:        eventType,
		OrderID:     order.ID.String(),
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		Currency:    order.Currency,
		Items:       lines,
		OccurredAt:  time.Now().UTC(),
	}
}

func (e *OrderEvent) WithCorrelationID(id string) *OrderEvent {
	e.CorrelationID = id

	return e
}
