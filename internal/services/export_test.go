package service

import (
	"time"

	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	"github.com/aaravmahajanofficial/storefront-checkout/pkg/stripe"
)

func NewCheckoutServiceWithClock(
	carts repository.CartRepository,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	gateway stripe.Client,
	notifier Notifier,
	cfg CheckoutConfig,
	now func() time.Time,
) CheckoutService {
	return newCheckoutService(carts, products, orders, gateway, notifier, cfg, now)
}

func NewOrderServiceWithClock(orders repository.OrderRepository, carts repository.CartRepository, gateway stripe.Client, notifier Notifier, now func() time.Time) OrderService {
	return newOrderService(orders, carts, gateway, notifier, now)
}
