package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	appErrors "github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/metrics"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/tracing"
	"github.com/aaravmahajanofficial/storefront-checkout/pkg/stripe"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

var tracer = tracing.Tracer("storefront/checkout")

type CheckoutConfig struct {
	Currency   string
	SuccessURL string
	CancelURL  string
	// RecencyWindow bounds how old an order may be and still be confirmed.
	RecencyWindow  time.Duration
	GatewayTimeout time.Duration
	// SessionExpiry is how long the hosted payment page stays usable. Zero
	// leaves the gateway default.
	SessionExpiry time.Duration
}

type CheckoutService interface {
	Initiate(ctx context.Context, caller models.Caller, req *models.InitiateCheckoutRequest) (*models.CheckoutResponse, error)
	Confirm(ctx context.Context, caller models.Caller) (*models.CheckoutResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*stripe.Event, error)
}

type checkoutService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	orders   repository.OrderRepository
	gateway  stripe.Client
	settle   *settlement
	policy   *bluemonday.Policy
	cfg      CheckoutConfig
	now      func() time.Time
}

func NewCheckoutService(
	carts repository.CartRepository,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	gateway stripe.Client,
	notifier Notifier,
	cfg CheckoutConfig,
) CheckoutService {
	return newCheckoutService(carts, products, orders, gateway, notifier, cfg, time.Now)
}

func newCheckoutService(
	carts repository.CartRepository,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	gateway stripe.Client,
	notifier Notifier,
	cfg CheckoutConfig,
	now func() time.Time,
) *checkoutService {
	return &checkoutService{
		carts:    carts,
		products: products,
		orders:   orders,
		gateway:  gateway,
		settle:   &settlement{orders: orders, carts: carts, notifier: notifier, now: now},
		policy:   bluemonday.StrictPolicy(),
		cfg:      cfg,
		now:      now,
	}
}

func (s *checkoutService) gatewayContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.GatewayTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, s.cfg.GatewayTimeout)
}

// Initiate turns the caller's cart into a pending order and opens a hosted
// payment session for its total. The cart is left untouched.
func (s *checkoutService) Initiate(ctx context.Context, caller models.Caller, req *models.InitiateCheckoutRequest) (*models.CheckoutResponse, error) {
	logger := middleware.LoggerFromContext(ctx).With(slog.String("checkoutState", string(models.CheckoutStateInitiating)))

	ctx, span := tracer.Start(ctx, "checkout.initiate")
	defer span.End()

	if caller.SessionID == "" {
		return nil, appErrors.BadRequestError("Session is required")
	}

	cart, err := s.carts.GetCart(ctx, caller.SessionID)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to load cart").WithError(err)
	}

	snapshot := cart.Snapshot()
	if !snapshot.Total.IsPositive() {
		metrics.RecordCheckout(metrics.OpInitiate, "empty_cart")
		return nil, appErrors.EmptyCartError()
	}

	for _, item := range snapshot.Items {
		product, err := s.products.GetProductByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, appErrors.StockUnavailableError(item.Name, 0).WithMeta("product_id", item.ProductID).WithError(err)
			}

			return nil, appErrors.DatabaseError("Failed to fetch product").WithError(err)
		}

		if item.Quantity > product.Stock {
			metrics.RecordCheckout(metrics.OpInitiate, "insufficient_stock")
			return nil, appErrors.StockUnavailableError(product.Name, product.Stock).WithMeta("product_id", product.ID)
		}
	}

	order := &models.Order{
		ID:              uuid.New(),
		UserID:          caller.UserID,
		SessionID:       caller.SessionID,
		Status:          models.OrderStatusPending,
		TotalAmount:     snapshot.Total,
		Currency:        s.cfg.Currency,
		ShippingAddress: s.sanitizeAddress(req),
		CreatedAt:       s.now().UTC(),
	}

	order.Items = make([]models.OrderItem, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		order.Items = append(order.Items, models.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   item.ProductID,
			ProductName: item.Name,
			UnitPrice:   item.Price,
			Quantity:    item.Quantity,
			LineTotal:   item.LineTotal(),
			CreatedAt:   order.CreatedAt,
		})
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, appErrors.DatabaseError("Failed to create order").WithError(err)
	}

	logger = logger.With(slog.String("orderId", order.ID.String()))

	sessionReq := &stripe.SessionRequest{
		Amount:      order.TotalAmount.Shift(2).Round(0).IntPart(),
		Currency:    order.Currency,
		Description: fmt.Sprintf("%d item(s)", snapshot.ItemCount),
		Reference:   order.ID.String(),
		SuccessURL:  s.cfg.SuccessURL,
		CancelURL:   s.cfg.CancelURL,
		Metadata:    map[string]string{"order_id": order.ID.String()},
	}

	if s.cfg.SessionExpiry > 0 {
		sessionReq.ExpiresAt = s.now().Add(s.cfg.SessionExpiry)
	}

	gatewayCtx, cancel := s.gatewayContext(ctx)
	defer cancel()

	session, err := s.gateway.CreateCheckoutSession(gatewayCtx, sessionReq)
	if err != nil {
		logger.Error("Failed to create payment session", slog.String("error", err.Error()))
		metrics.RecordCheckout(metrics.OpInitiate, "gateway_unavailable")

		if failErr := s.settle.fail(ctx, order); failErr != nil {
			logger.Error("Failed to mark order as failed", slog.String("error", failErr.Error()))
		}

		return nil, appErrors.GatewayUnavailableError().WithError(err)
	}

	if err := s.orders.SetPaymentSession(ctx, order.ID, session.ID); err != nil {
		logger.Error("Failed to store payment session", slog.String("paymentSessionId", session.ID), slog.String("error", err.Error()))

		if expireErr := s.gateway.ExpireCheckoutSession(ctx, session.ID); expireErr != nil {
			logger.Warn("Failed to expire orphaned payment session", slog.String("error", expireErr.Error()))
		}

		if failErr := s.settle.fail(ctx, order); failErr != nil {
			logger.Error("Failed to mark order as failed", slog.String("error", failErr.Error()))
		}

		return nil, appErrors.DatabaseError("Failed to start checkout").WithError(err)
	}

	order.PaymentSessionID = session.ID

	logger.Info("Checkout initiated", slog.String("paymentSessionId", session.ID))
	metrics.RecordCheckout(metrics.OpInitiate, "awaiting_payment")

	return &models.CheckoutResponse{
		Order:       order,
		State:       models.CheckoutStateAwaitingPayment,
		RedirectURL: session.URL,
	}, nil
}

// Confirm completes the caller's most recent order once the gateway reports
// it as paid. The order stays pending on every other outcome.
func (s *checkoutService) Confirm(ctx context.Context, caller models.Caller) (*models.CheckoutResponse, error) {
	logger := middleware.LoggerFromContext(ctx).With(slog.String("checkoutState", string(models.CheckoutStateConfirming)))

	ctx, span := tracer.Start(ctx, "checkout.confirm")
	defer span.End()

	if caller.IsAnonymous() {
		return nil, appErrors.UnauthorizedError("Authentication required")
	}

	order, err := s.orders.FindRecentConfirmable(ctx, caller, s.now().Add(-s.cfg.RecencyWindow))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RecordCheckout(metrics.OpConfirm, "no_recent_order")
			return nil, appErrors.NoRecentOrderError().WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to find order").WithError(err)
	}

	if order.Status == models.OrderStatusCompleted {
		return &models.CheckoutResponse{Order: order, State: models.CheckoutStateCompleted}, nil
	}

	if order.PaymentSessionID == "" {
		metrics.RecordCheckout(metrics.OpConfirm, "no_recent_order")
		return nil, appErrors.NoRecentOrderError()
	}

	logger = logger.With(slog.String("orderId", order.ID.String()), slog.String("paymentSessionId", order.PaymentSessionID))

	gatewayCtx, cancel := s.gatewayContext(ctx)
	defer cancel()

	details, err := s.gateway.GetCheckoutSession(gatewayCtx, order.PaymentSessionID)
	if err != nil {
		logger.Error("Failed to query payment session", slog.String("error", err.Error()))
		metrics.RecordCheckout(metrics.OpConfirm, "gateway_unavailable")

		return nil, appErrors.GatewayUnavailableError().WithError(err)
	}

	if !details.IsPaid() {
		logger.Info("Payment not confirmed", slog.String("paymentStatus", details.PaymentStatus))
		metrics.RecordCheckout(metrics.OpConfirm, "payment_not_confirmed")

		return nil, appErrors.PaymentNotConfirmedError()
	}

	completed, err := s.settle.complete(ctx, order, details)
	if err != nil {
		metrics.RecordCheckout(metrics.OpConfirm, "error")
		return nil, err
	}

	metrics.RecordCheckout(metrics.OpConfirm, "completed")

	return &models.CheckoutResponse{Order: completed, State: models.CheckoutStateCompleted}, nil
}

// HandleWebhook reconciles orders from signed gateway notifications. Events
// that do not concern a known order are acknowledged and ignored.
func (s *checkoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*stripe.Event, error) {
	logger := middleware.LoggerFromContext(ctx)

	event, err := s.gateway.VerifyWebhookSignature(payload, signature)
	if err != nil {
		return nil, appErrors.BadRequestError("Webhook signature verification failed").WithError(err)
	}

	logger = logger.With(slog.String("eventId", event.ID), slog.String("eventType", event.Type))

	var handled bool

	switch event.Type {
	case stripe.EventCheckoutCompleted, stripe.EventCheckoutAsyncPaymentSucceeded:
		handled, err = s.reconcilePaid(ctx, logger, event)
	case stripe.EventCheckoutExpired, stripe.EventCheckoutAsyncPaymentFailed:
		handled, err = s.reconcileFailed(ctx, logger, event)
	default:
		logger.Debug("Ignoring webhook event")
		return event, nil
	}

	if err != nil {
		metrics.RecordCheckout(metrics.OpWebhook, "error")
		return event, err
	}

	if handled {
		metrics.RecordCheckout(metrics.OpWebhook, event.Type)
	}

	return event, nil
}

func (s *checkoutService) orderForEvent(ctx context.Context, logger *slog.Logger, event *stripe.Event) (*models.Order, error) {
	if event.SessionID == "" {
		return nil, nil
	}

	order, err := s.orders.GetOrderByPaymentSession(ctx, event.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Warn("Webhook for unknown payment session", slog.String("paymentSessionId", event.SessionID))
			return nil, nil
		}

		return nil, appErrors.DatabaseError("Failed to find order").WithError(err)
	}

	return order, nil
}

func (s *checkoutService) reconcilePaid(ctx context.Context, logger *slog.Logger, event *stripe.Event) (bool, error) {
	order, err := s.orderForEvent(ctx, logger, event)
	if err != nil || order == nil {
		return false, err
	}

	if order.Status.IsTerminal() {
		if order.Status == models.OrderStatusFailed {
			logger.Error("Payment received for a failed order", slog.String("orderId", order.ID.String()))
		}

		return false, nil
	}

	gatewayCtx, cancel := s.gatewayContext(ctx)
	defer cancel()

	details, err := s.gateway.GetCheckoutSession(gatewayCtx, event.SessionID)
	if err != nil {
		logger.Error("Failed to query payment session", slog.String("error", err.Error()))
		return false, appErrors.GatewayUnavailableError().WithError(err)
	}

	if !details.IsPaid() {
		logger.Info("Checkout finished without payment yet", slog.String("paymentStatus", details.PaymentStatus))
		return false, nil
	}

	if _, err := s.settle.complete(ctx, order, details); err != nil {
		return false, err
	}

	return true, nil
}

func (s *checkoutService) reconcileFailed(ctx context.Context, logger *slog.Logger, event *stripe.Event) (bool, error) {
	order, err := s.orderForEvent(ctx, logger, event)
	if err != nil || order == nil {
		return false, err
	}

	if err := s.settle.fail(ctx, order); err != nil {
		if appErrors.HasCode(err, appErrors.ErrCodeInvalidTransition) {
			return false, nil
		}

		return false, err
	}

	logger.Info("Order failed", slog.String("orderId", order.ID.String()))

	return true, nil
}

func (s *checkoutService) sanitizeAddress(req *models.InitiateCheckoutRequest) *models.Address {
	if req == nil || req.ShippingAddress == nil {
		return nil
	}

	clean := func(v string) string {
		return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
	}

	a := req.ShippingAddress

	return &models.Address{
		Line1:      clean(a.Line1),
		Line2:      clean(a.Line2),
		City:       clean(a.City),
		State:      clean(a.State),
		PostalCode: clean(a.PostalCode),
		Country:    strings.ToUpper(clean(a.Country)),
	}
}
