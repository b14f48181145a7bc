package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/balance"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/webhook"
)

const (
	PaymentStatusPaid   = string(stripe.CheckoutSessionPaymentStatusPaid)
	PaymentStatusUnpaid = string(stripe.CheckoutSessionPaymentStatusUnpaid)

	SessionStatusOpen     = string(stripe.CheckoutSessionStatusOpen)
	SessionStatusComplete = string(stripe.CheckoutSessionStatusComplete)
	SessionStatusExpired  = string(stripe.CheckoutSessionStatusExpired)
)

// Webhook event types the checkout flow reacts to.
const (
	EventCheckoutCompleted             = "checkout.session.completed"
	EventCheckoutAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	EventCheckoutAsyncPaymentFailed    = "checkout.session.async_payment_failed"
	EventCheckoutExpired               = "checkout.session.expired"
)

// OrderTotalLabel is the single line item shown on the hosted payment page.
const OrderTotalLabel = "Order Total"

var ErrWebhookSecretMissing = errors.New("webhook secret not configured")

type Config struct {
	APIKey        string
	WebhookSecret string
	// BackendURL overrides the Stripe API base URL. Empty means api.stripe.com.
	BackendURL string
	Timeout    time.Duration
}

type SessionRequest struct {
	// Amount is in the currency's minor unit.
	Amount        int64
	Currency      string
	Description   string
	Reference     string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
	ExpiresAt     time.Time
}

type Session struct {
	ID  string
	URL string
}

type Address struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

type SessionDetails struct {
	ID            string
	PaymentStatus string
	Status        string
	AmountTotal   int64
	Currency      string
	CustomerEmail string
	CustomerName  string
	Address       *Address
	Metadata      map[string]string
}

func (d *SessionDetails) IsPaid() bool {
	return d != nil && d.PaymentStatus == PaymentStatusPaid
}

// Event is a verified webhook notification about a checkout session.
type Event struct {
	ID        string
	Type      string
	SessionID string
}

// Client is the payment gateway as seen by the checkout flow.
type Client interface {
	CreateCheckoutSession(ctx context.Context, req *SessionRequest) (*Session, error)
	GetCheckoutSession(ctx context.Context, id string) (*SessionDetails, error)
	ExpireCheckoutSession(ctx context.Context, id string) error
	VerifyWebhookSignature(payload []byte, signature string) (*Event, error)
	Ping(ctx context.Context) error
}

type stripeClient struct {
	sessions      session.Client
	balance       balance.Client
	webhookSecret string
}

func NewStripeClient(cfg Config) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}

	if cfg.BackendURL != "" {
		backendCfg.URL = stripe.String(cfg.BackendURL)
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)

	return &stripeClient{
		sessions:      session.Client{B: backend, Key: cfg.APIKey},
		balance:       balance.Client{B: backend, Key: cfg.APIKey},
		webhookSecret: cfg.WebhookSecret,
	}
}

func (s *stripeClient) CreateCheckoutSession(ctx context.Context, req *SessionRequest) (*Session, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("checkout amount must be positive, got %d", req.Amount)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(OrderTotalLabel),
					},
				},
			},
		},
	}
	params.Context = ctx

	if req.Description != "" {
		params.LineItems[0].PriceData.ProductData.Description = stripe.String(req.Description)
	}

	if req.Reference != "" {
		params.ClientReferenceID = stripe.String(req.Reference)
	}

	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}

	if !req.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(req.ExpiresAt.Unix())
	}

	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	cs, err := s.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("creating checkout session: %w", err)
	}

	return &Session{ID: cs.ID, URL: cs.URL}, nil
}

func (s *stripeClient) GetCheckoutSession(ctx context.Context, id string) (*SessionDetails, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	cs, err := s.sessions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("fetching checkout session %s: %w", id, err)
	}

	details := &SessionDetails{
		ID:            cs.ID,
		PaymentStatus: string(cs.PaymentStatus),
		Status:        string(cs.Status),
		AmountTotal:   cs.AmountTotal,
		Currency:      string(cs.Currency),
		Metadata:      cs.Metadata,
	}

	if cd := cs.CustomerDetails; cd != nil {
		details.CustomerEmail = cd.Email
		details.CustomerName = cd.Name

		if a := cd.Address; a != nil && a.Line1 != "" {
			details.Address = &Address{
				Line1:      a.Line1,
				Line2:      a.Line2,
				City:       a.City,
				State:      a.State,
				PostalCode: a.PostalCode,
				Country:    a.Country,
			}
		}
	}

	if details.CustomerEmail == "" {
		details.CustomerEmail = cs.CustomerEmail
	}

	return details, nil
}

func (s *stripeClient) ExpireCheckoutSession(ctx context.Context, id string) error {
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx

	if _, err := s.sessions.Expire(id, params); err != nil {
		return fmt.Errorf("expiring checkout session %s: %w", id, err)
	}

	return nil
}

// VerifyWebhookSignature checks the Stripe-Signature header and extracts the
// checkout session the event refers to.
func (s *stripeClient) VerifyWebhookSignature(payload []byte, signature string) (*Event, error) {
	if s.webhookSecret == "" {
		return nil, ErrWebhookSecretMissing
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, err
	}

	out := &Event{ID: event.ID, Type: string(event.Type)}

	if event.Data != nil && len(event.Data.Raw) > 0 {
		var obj struct {
			ID     string `json:"id"`
			Object string `json:"object"`
		}

		if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
			return nil, fmt.Errorf("decoding event object: %w", err)
		}

		if obj.Object == "checkout.session" {
			out.SessionID = obj.ID
		}
	}

	return out, nil
}

// Ping is a cheap authenticated call used by the health check.
func (s *stripeClient) Ping(ctx context.Context) error {
	params := &stripe.BalanceParams{}
	params.Context = ctx

	_, err := s.balance.Get(params)

	return err
}

// IsClientError reports whether err is a Stripe 4xx response other than rate
// limiting. Such errors say nothing about gateway health.
func IsClientError(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}

	return stripeErr.HTTPStatusCode >= 400 && stripeErr.HTTPStatusCode < 500 && stripeErr.HTTPStatusCode != http.StatusTooManyRequests
}
