package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/aaravmahajanofficial/storefront-checkout/docs"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/handlers"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/config"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/health"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/metrics"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/tracing"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.Env, version)
	if err != nil {
		return err
	}

	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error("⚠️ Error flushing traces", slog.String("error", err.Error()))
		}
	}()

	deps, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	healthCheck, err := health.NewHealthHandler(cfg, &health.Endpoints{Gateway: deps.gateway, Version: version})
	if err != nil {
		return err
	}

	limiter := repository.NewRateLimiter(deps.redis, "checkout_starts", cfg.Checkout.StartWindow, cfg.Checkout.MaxStarts)

	productHandler := handlers.NewProductHandler(deps.products)
	cartHandler := handlers.NewCartHandler(deps.cart)
	checkoutHandler := handlers.NewCheckoutHandler(deps.checkout)
	orderHandler := handlers.NewOrderHandler(deps.orders)

	router := http.NewServeMux()
	router.HandleFunc("GET /api/v1/products", productHandler.ListProducts())
	router.HandleFunc("GET /api/v1/products/{id}", productHandler.GetProduct())
	router.HandleFunc("GET /api/v1/cart", cartHandler.GetCart())
	router.HandleFunc("DELETE /api/v1/cart", cartHandler.ClearCart())
	router.HandleFunc("POST /api/v1/cart/items", cartHandler.AddItem())
	router.HandleFunc("PATCH /api/v1/cart/items/{id}", cartHandler.UpdateItem())
	router.HandleFunc("DELETE /api/v1/cart/items/{id}", cartHandler.RemoveItem())
	router.HandleFunc("POST /api/v1/checkout", middleware.RateLimitBySession(limiter, checkoutHandler.StartCheckout()))
	router.HandleFunc("POST /api/v1/checkout/confirm", checkoutHandler.ConfirmCheckout())
	router.HandleFunc("POST /api/v1/payments/webhook", checkoutHandler.HandleStripeWebhook())
	router.HandleFunc("GET /api/v1/orders", orderHandler.ListOrders())
	router.HandleFunc("GET /api/v1/orders/{id}", orderHandler.GetOrder())
	router.Handle("GET /health", healthCheck.Handler())
	router.Handle("GET /metrics", metrics.Handler())
	router.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Metrics sit next to the router so they see the matched route pattern.
	sessions := middleware.NewSessionMiddleware(cfg.Session.CookieName, cfg.Session.TTL, cfg.Session.Secure)
	auth := middleware.NewAuthMiddleware([]byte(cfg.Security.JWTKey))

	var handler http.Handler = metrics.Middleware(router)
	handler = auth.Authenticate(handler)
	handler = sessions.Handle(handler)
	handler = middleware.Logging(handler)
	handler = otelhttp.NewHandler(handler, tracing.ServiceName)

	server := &http.Server{
		Addr:         cfg.HTTPServer.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("🚀 Server is starting...", slog.String("address", cfg.HTTPServer.Addr))

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}

		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
		logger.Warn("🛑 Shutdown signal received. Preparing to stop the server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("✅ Server shut down gracefully. All connections closed.")

	return nil
}
