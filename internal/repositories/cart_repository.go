package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/cache"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
)

// CartRepository keeps one cart per browser session. Every write refreshes
// the expiry so an active cart lives as long as its session.
type CartRepository interface {
	GetCart(ctx context.Context, sessionID string) (*models.Cart, error)
	SaveCart(ctx context.Context, cart *models.Cart) error
	DeleteCart(ctx context.Context, sessionID string) error
}

type cartRepository struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewCartRepo(c cache.Cache, ttl time.Duration) CartRepository {
	return &cartRepository{cache: c, ttl: ttl}
}

func cartKey(sessionID string) string {
	return cache.Key(cache.CartKeyPrefix, sessionID)
}

// GetCart returns an empty cart when the session has none yet.
func (r *cartRepository) GetCart(ctx context.Context, sessionID string) (*models.Cart, error) {
	cart := models.NewCart(sessionID)

	found, err := r.cache.Get(ctx, cartKey(sessionID), cart)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	if !found || cart.Items == nil {
		cart.Items = make(map[models.ProductID]models.CartItem)
	}

	cart.SessionID = sessionID

	return cart, nil
}

func (r *cartRepository) SaveCart(ctx context.Context, cart *models.Cart) error {
	cart.UpdatedAt = time.Now().UTC()

	if err := r.cache.Set(ctx, cartKey(cart.SessionID), cart, r.ttl); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}

	return nil
}

func (r *cartRepository) DeleteCart(ctx context.Context, sessionID string) error {
	if err := r.cache.Delete(ctx, cartKey(sessionID)); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	return nil
}
