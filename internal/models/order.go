package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
)

// CanTransitionTo reports whether the ledger allows moving from s to next.
// Only pending orders can move, and only to a terminal state.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return s == OrderStatusPending && (next == OrderStatusCompleted || next == OrderStatusFailed)
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusFailed
}

// CheckoutState is the per-attempt progress reported to the client.
type CheckoutState string

const (
	CheckoutStateInitiating      CheckoutState = "initiating"
	CheckoutStateAwaitingPayment CheckoutState = "awaiting_payment"
	CheckoutStateConfirming      CheckoutState = "confirming"
	CheckoutStateCompleted       CheckoutState = "completed"
	CheckoutStateFailed          CheckoutState = "failed"
)

type Address struct {
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2,omitempty" validate:"omitempty,max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state,omitempty" validate:"omitempty,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,iso3166_1_alpha2"`
}

type OrderItem struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"order_id"`
	ProductID   ProductID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int64           `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Order struct {
	ID               uuid.UUID       `json:"id"`
	UserID           *uuid.UUID      `json:"user_id,omitempty"`
	SessionID        string          `json:"-"`
	PaymentSessionID string          `json:"payment_session_id,omitempty"`
	Status           OrderStatus     `json:"status"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Currency         string          `json:"currency"`
	CustomerEmail    string          `json:"customer_email,omitempty"`
	CustomerName     string          `json:"customer_name,omitempty"`
	ShippingAddress  *Address        `json:"shipping_address,omitempty"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	Items            []OrderItem     `json:"items"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ItemsTotal sums the line totals of the order items.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal)
	}

	return total
}

// Completion carries the fields the pending -> completed transition sets.
type Completion struct {
	CustomerEmail   string
	CustomerName    string
	ShippingAddress *Address
	PaidAt          time.Time
}

type InitiateCheckoutRequest struct {
	ShippingAddress *Address `json:"shipping_address,omitempty" validate:"omitempty"`
}

type CheckoutResponse struct {
	Order       *Order        `json:"order"`
	State       CheckoutState `json:"state"`
	RedirectURL string        `json:"redirect_url,omitempty"`
}

// SweepResult summarizes one expiry sweep run.
type SweepResult struct {
	Scanned   int `json:"scanned"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}
