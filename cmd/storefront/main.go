package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/config"
	"github.com/urfave/cli/v2"
)

var version = "dev"

//	@title						Storefront Checkout API
//	@version					1.0
//	@description				Session carts, hosted checkout and order history.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization

func main() {

	app := &cli.App{
		Name:    "storefront",
		Usage:   "cart and checkout service",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML config file",
				EnvVars: []string{"CONFIG_PATH"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			sweepCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("❌ Command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// setup loads the config and installs the JSON logger as the default.
func setup(c *cli.Context) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, nil, fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(slog.String("env", cfg.Env), slog.String("version", version))
	slog.SetDefault(logger)

	return cfg, logger, nil
}
