package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/cache"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/config"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/events"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	service "github.com/aaravmahajanofficial/storefront-checkout/internal/services"
	"github.com/aaravmahajanofficial/storefront-checkout/pkg/sendGrid"
	"github.com/aaravmahajanofficial/storefront-checkout/pkg/stripe"
	"github.com/redis/go-redis/v9"
)

// app holds the wired services shared by the serve and sweep commands.
type app struct {
	repos     *repository.Repository
	redis     *redis.Client
	gateway   stripe.Client
	publisher events.Publisher

	products service.ProductService
	cart     service.CartService
	checkout service.CheckoutService
	orders   service.OrderService
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {

	repos, err := repository.New(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("error accessing the database: %w", err)
	}

	if cfg.Database.MigrateOnStart {
		if err := repository.MigrateUp(repos.DB); err != nil {
			_ = repos.Close()
			return nil, err
		}
	}

	redisClient, err := repository.NewRedisClient(&cfg.RedisConnect)
	if err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("error accessing the redis instance: %w", err)
	}

	carts := repository.NewCartRepo(cache.NewRedisCache(redisClient, cfg.Session.TTL), cfg.Session.TTL)

	gateway := stripe.WithCircuitBreaker(
		stripe.NewStripeClient(stripe.Config{
			APIKey:        cfg.Stripe.APIKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			BackendURL:    cfg.Stripe.BackendURL,
			Timeout:       cfg.Checkout.GatewayTimeout,
		}),
		stripe.DefaultBreakerConfig(),
		logger,
	)

	var email sendGrid.EmailService
	if cfg.SendGrid.APIKey != "" {
		email = sendGrid.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	} else {
		logger.Warn("⚠️ SendGrid API key not set, order receipts are disabled")
	}

	publisher := events.NewNoopPublisher()
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		logger.Info("Publishing order events", slog.String("topic", cfg.Kafka.Topic))
	}

	notifier := service.NewNotifier(email, publisher)

	checkoutCfg := service.CheckoutConfig{
		Currency:       cfg.Checkout.Currency,
		SuccessURL:     cfg.Checkout.SuccessURL,
		CancelURL:      cfg.Checkout.CancelURL,
		RecencyWindow:  cfg.Checkout.RecencyWindow,
		GatewayTimeout: cfg.Checkout.GatewayTimeout,
		SessionExpiry:  cfg.Checkout.SessionExpiry,
	}

	return &app{
		repos:     repos,
		redis:     redisClient,
		gateway:   gateway,
		publisher: publisher,
		products:  service.NewProductService(repos.Product),
		cart:      service.NewCartService(carts, repos.Product),
		checkout:  service.NewCheckoutService(carts, repos.Product, repos.Order, gateway, notifier, checkoutCfg),
		orders:    service.NewOrderService(repos.Order, carts, gateway, notifier),
	}, nil
}

func (a *app) Close() {
	if err := a.publisher.Close(); err != nil {
		slog.Error("⚠️ Error closing event publisher", slog.String("error", err.Error()))
	}

	if err := a.redis.Close(); err != nil {
		slog.Error("⚠️ Error closing redis connection", slog.String("error", err.Error()))
	}

	if err := a.repos.Close(); err != nil {
		slog.Error("⚠️ Error closing database connection", slog.String("error", err.Error()))
	} else {
		slog.Info("✅ Database connection closed")
	}
}
