package service

import (
	"context"
	"errors"

	appErrors "github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
)

// CartService manages the session-scoped cart. Every mutation is persisted
// before it returns.
type CartService interface {
	Add(ctx context.Context, sessionID string, productID models.ProductID, quantity int64) (*models.CartSnapshot, error)
	SetQuantity(ctx context.Context, sessionID string, productID models.ProductID, quantity int64) (*models.CartSnapshot, error)
	Remove(ctx context.Context, sessionID string, productID models.ProductID) (*models.CartSnapshot, error)
	Clear(ctx context.Context, sessionID string) error
	Snapshot(ctx context.Context, sessionID string) (*models.CartSnapshot, error)
}

type cartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository) CartService {
	return &cartService{carts: carts, products: products}
}

func (s *cartService) Add(ctx context.Context, sessionID string, productID models.ProductID, quantity int64) (*models.CartSnapshot, error) {
	if quantity < 1 {
		return nil, appErrors.AddValidationError("quantity", "must be at least 1")
	}

	product, err := s.product(ctx, productID)
	if err != nil {
		return nil, err
	}

	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	inCart := cart.QuantityOf(productID)
	room := max(product.Stock-inCart, 0)

	if quantity > room {
		return nil, appErrors.InsufficientStockError(room).WithMeta("product_id", productID)
	}

	item, exists := cart.Items[productID]
	if exists {
		item.Quantity += quantity
	} else {
		item = models.CartItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Image:     product.Image,
			Quantity:  quantity,
		}
	}

	cart.Items[productID] = item

	return s.save(ctx, cart)
}

// SetQuantity replaces the quantity of a line already in the cart.
func (s *cartService) SetQuantity(ctx context.Context, sessionID string, productID models.ProductID, quantity int64) (*models.CartSnapshot, error) {
	if quantity < 1 {
		return nil, appErrors.AddValidationError("quantity", "must be at least 1")
	}

	product, err := s.product(ctx, productID)
	if err != nil {
		return nil, err
	}

	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	item, exists := cart.Items[productID]
	if !exists {
		return nil, appErrors.NotInCartError("Product is not in your cart").WithMeta("product_id", productID)
	}

	if quantity > product.Stock {
		return nil, appErrors.StockUnavailableError(product.Name, product.Stock).WithMeta("product_id", productID)
	}

	item.Quantity = quantity
	cart.Items[productID] = item

	return s.save(ctx, cart)
}

func (s *cartService) Remove(ctx context.Context, sessionID string, productID models.ProductID) (*models.CartSnapshot, error) {
	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if _, exists := cart.Items[productID]; !exists {
		return cart.Snapshot(), nil
	}

	delete(cart.Items, productID)

	return s.save(ctx, cart)
}

func (s *cartService) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return appErrors.BadRequestError("Session is required")
	}

	if err := s.carts.DeleteCart(ctx, sessionID); err != nil {
		return appErrors.DatabaseError("Failed to clear cart").WithError(err)
	}

	return nil
}

func (s *cartService) Snapshot(ctx context.Context, sessionID string) (*models.CartSnapshot, error) {
	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return cart.Snapshot(), nil
}

func (s *cartService) product(ctx context.Context, id models.ProductID) (*models.Product, error) {
	product, err := s.products.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.NotFoundError("Product not found").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to fetch product").WithError(err)
	}

	return product, nil
}

func (s *cartService) load(ctx context.Context, sessionID string) (*models.Cart, error) {
	if sessionID == "" {
		return nil, appErrors.BadRequestError("Session is required")
	}

	cart, err := s.carts.GetCart(ctx, sessionID)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to load cart").WithError(err)
	}
	return cart, nil
}

func (s *cartService) save(ctx context.Context, cart *models.Cart) (*models.CartSnapshot, error) {
	if err := s.carts.SaveCart(ctx, cart); err != nil {
		return nil, appErrors.DatabaseError("Failed to update cart").WithError(err)
	}

	return cart.Snapshot(), nil
}
