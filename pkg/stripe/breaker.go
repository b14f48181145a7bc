package stripe

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned without calling Stripe while the breaker is open
// or saturated in the half-open state.
var ErrCircuitOpen = gobreaker.ErrOpenState

var breakerState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "payment_gateway_breaker_state",
		Help: "Current state of the payment gateway circuit breaker (0=closed, 1=half-open, 2=open)",
	},
	[]string{"name"},
)

type BreakerConfig struct {
	Name string
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval clears the closed-state counts. Zero never clears them.
	Interval time.Duration
	// Timeout is how long the breaker stays open.
	Timeout      time.Duration
	FailureRatio float64
	MinRequests  uint32
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "stripe",
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

type breakerClient struct {
	next    Client
	breaker *gobreaker.CircuitBreaker[any]
}

// WithCircuitBreaker guards the remote calls of next. Stripe 4xx responses
// count as successes since they do not indicate an unhealthy gateway.
func WithCircuitBreaker(next Client, cfg BreakerConfig, logger *slog.Logger) Client {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}

			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Payment gateway breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateValue(to))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsClientError(err)
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
	}

	breakerState.WithLabelValues(cfg.Name).Set(0)

	return &breakerClient{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func execute[T any](cb *gobreaker.CircuitBreaker[any], fn func() (T, error)) (T, error) {
	res, err := cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = ErrCircuitOpen
		}

		return zero, err
	}

	return res.(T), nil
}

func (b *breakerClient) CreateCheckoutSession(ctx context.Context, req *SessionRequest) (*Session, error) {
	return execute(b.breaker, func() (*Session, error) {
		return b.next.CreateCheckoutSession(ctx, req)
	})
}

func (b *breakerClient) GetCheckoutSession(ctx context.Context, id string) (*SessionDetails, error) {
	return execute(b.breaker, func() (*SessionDetails, error) {
		return b.next.GetCheckoutSession(ctx, id)
	})
}

func (b *breakerClient) ExpireCheckoutSession(ctx context.Context, id string) error {
	_, err := execute(b.breaker, func() (struct{}, error) {
		return struct{}{}, b.next.ExpireCheckoutSession(ctx, id)
	})

	return err
}

func (b *breakerClient) VerifyWebhookSignature(payload []byte, signature string) (*Event, error) {
	return b.next.VerifyWebhookSignature(payload, signature)
}

func (b *breakerClient) Ping(ctx context.Context) error {
	return b.next.Ping(ctx)
}
