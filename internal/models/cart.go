package models

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is a snapshot of the product taken when the line was first added.
// ProductID is kept so the line can be re-validated against the catalog.
type CartItem struct {
	ProductID ProductID       `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int64           `json:"quantity"`
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(i.Quantity))
}

// Cart is the session-scoped collection of line items. Totals are never
// stored; see Snapshot.
type Cart struct {
	SessionID string                 `json:"session_id"`
	Items     map[ProductID]CartItem `json:"items"`
	UpdatedAt time.Time              `json:"updated_at"`
}

func NewCart(sessionID string) *Cart {
	return &Cart{
		SessionID: sessionID,
		Items:     make(map[ProductID]CartItem),
	}
}

func (c *Cart) QuantityOf(id ProductID) int64 {
	if c == nil {
		return 0
	}

	return c.Items[id].Quantity
}

// Snapshot computes the derived cart values. It never mutates the cart.
func (c *Cart) Snapshot() *CartSnapshot {
	snapshot := &CartSnapshot{
		Items: make([]CartItem, 0, len(c.Items)),
		Total: decimal.Zero,
	}

	for _, item := range c.Items {
		snapshot.Items = append(snapshot.Items, item)
		snapshot.Total = snapshot.Total.Add(item.LineTotal())
		snapshot.ItemCount += item.Quantity
	}

	slices.SortFunc(snapshot.Items, func(a, b CartItem) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})

	return snapshot
}

type CartSnapshot struct {
	Items     []CartItem      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int64           `json:"item_count"`
}

type AddItemRequest struct {
	ProductID ProductID `json:"product_id" validate:"required,gt=0"`
	Quantity  int64     `json:"quantity"   validate:"required,min=1"`
}

type UpdateQuantityRequest struct {
	Quantity int64 `json:"quantity" validate:"required,min=1"`
}
