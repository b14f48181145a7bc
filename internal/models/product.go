package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ProductID is the only key type used for products across the catalog, the
// cart store and the order ledger. Raw identifiers are parsed once at the
// boundary with ParseProductID.
type ProductID int64

func (id ProductID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func ParseProductID(raw string) (ProductID, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid product id %q: %w", raw, err)
	}

	if v <= 0 {
		return 0, fmt.Errorf("invalid product id %q: must be positive", raw)
	}

	return ProductID(v), nil
}

type Product struct {
	ID          ProductID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int64           `json:"stock"`
	Image       string          `json:"image"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
