package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/config"
	"github.com/aaravmahajanofficial/storefront-checkout/pkg/stripe"
	"github.com/hellofresh/health-go/v5"
	"github.com/hellofresh/health-go/v5/checks/postgres"
	healthRedis "github.com/hellofresh/health-go/v5/checks/redis"
)

const componentName = "storefront-checkout"

var errGatewayMissing = errors.New("payment gateway is not initialized")

type Endpoints struct {
	Gateway stripe.Client
	Version string
}

// NewHealthHandler reports postgres and redis as hard dependencies. The
// payment gateway is reported but does not fail the check, since carts and
// catalog reads keep working without it.
func NewHealthHandler(cfg *config.Config, endpoints *Endpoints) (*health.Health, error) {

	version := endpoints.Version
	if version == "" {
		version = "dev"
	}

	h, err := health.New(
		health.WithComponent(health.Component{
			Name:    componentName,
			Version: version,
		}),
		health.WithSystemInfo(),
		health.WithChecks(
			health.Config{
				Name:      "database",
				Timeout:   3 * time.Second,
				SkipOnErr: false,
				Check: postgres.New(postgres.Config{
					DSN: cfg.Database.GetDSN(),
				}),
			},
			health.Config{
				Name:      "redis",
				Timeout:   2 * time.Second,
				SkipOnErr: false,
				Check: healthRedis.New(
					healthRedis.Config{
						DSN: cfg.RedisConnect.GetDSN(),
					},
				),
			},
			health.Config{
				Name:      "stripe",
				Timeout:   5 * time.Second,
				SkipOnErr: true,
				Check:     gatewayCheck(endpoints.Gateway),
			},
		),
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create health instance: %w", err)
	}

	return h, nil
}

func gatewayCheck(gateway stripe.Client) health.CheckFunc {
	return func(ctx context.Context) error {
		if gateway == nil {
			return errGatewayMissing
		}

		if err := gateway.Ping(ctx); err != nil {
			return fmt.Errorf("failed to reach stripe: %w", err)
		}

		return nil
	}
}
