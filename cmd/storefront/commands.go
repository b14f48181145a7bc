package main

import (
	"fmt"
	"log/slog"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	"github.com/urfave/cli/v2"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API",
		Action: func(c *cli.Context) error {
			cfg, logger, err := setup(c)
			if err != nil {
				return err
			}

			return serve(c.Context, cfg, logger)
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "manage the database schema",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: func(c *cli.Context) error {
					cfg, _, err := setup(c)
					if err != nil {
						return err
					}

					repos, err := repository.New(c.Context, &cfg.Database)
					if err != nil {
						return err
					}
					defer repos.Close()

					return repository.MigrateUp(repos.DB)
				},
			},
			{
				Name:  "down",
				Usage: "roll back migrations",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "steps", Value: 1, Usage: "number of migrations to roll back"},
				},
				Action: func(c *cli.Context) error {
					cfg, _, err := setup(c)
					if err != nil {
						return err
					}

					repos, err := repository.New(c.Context, &cfg.Database)
					if err != nil {
						return err
					}
					defer repos.Close()

					return repository.MigrateDown(repos.DB, c.Int("steps"))
				},
			},
		},
	}
}

// sweepCommand is meant to run from cron. It settles pending orders whose
// payment page was abandoned.
func sweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "settle or fail stale pending orders",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "older-than", Usage: "override checkout.expire_after"},
			&cli.IntFlag{Name: "limit", Usage: "override checkout.sweep_batch_size"},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := setup(c)
			if err != nil {
				return err
			}

			olderThan := cfg.Checkout.ExpireAfter
			if c.IsSet("older-than") {
				olderThan = c.Duration("older-than")
			}

			limit := cfg.Checkout.SweepBatchSize
			if c.IsSet("limit") {
				limit = c.Int("limit")
			}

			deps, err := newApp(c.Context, cfg, logger)
			if err != nil {
				return err
			}
			defer deps.Close()

			ctx := middleware.WithLogger(c.Context, logger.With(slog.String("command", "sweep")))

			result, err := deps.orders.Sweep(ctx, olderThan, limit)
			if err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}

			logger.Info("✅ Sweep complete",
				slog.Int("scanned", result.Scanned),
				slog.Int("completed", result.Completed),
				slog.Int("failed", result.Failed),
				slog.Int("skipped", result.Skipped))

			return nil
		},
	}
}
