package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Overmuse/risk-manager/internal/app"
	"github.com/Overmuse/risk-manager/internal/broker"
	httpserver "github.com/Overmuse/risk-manager/internal/interfaces/http"
	"github.com/Overmuse/risk-manager/internal/prices"
	"github.com/Overmuse/risk-manager/internal/stream"
	"github.com/Overmuse/risk-manager/internal/telemetry"
)

func runCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Hydrate the portfolio and serve risk checks from the event stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			metrics := telemetry.NewMetrics()

			priceSource := prices.NewRedisSource(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
			defer priceSource.Close()

			bus := stream.NewRedisBus(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
			defer bus.Close()

			client := broker.NewClient(broker.Config{
				BaseURL:   cfg.Broker.BaseURL,
				KeyID:     cfg.Broker.KeyID,
				SecretKey: cfg.Broker.SecretKey,
				Timeout:   cfg.Broker.Timeout.Std(),
			})

			manager := app.New(bus, priceSource, metrics, app.Streams{
				Events:    cfg.Stream.Events,
				Decisions: cfg.Stream.Decisions,
				Group:     cfg.Stream.Group,
				Consumer:  cfg.Stream.Consumer,
			})
			if err := manager.Hydrate(cmd.Context(), client); err != nil {
				return err
			}

			server := httpserver.NewServer(cfg.HTTP.Server(), manager, metrics.Registry(), map[string]httpserver.HealthChecker{
				"redis":  priceSource.Ping,
				"stream": bus.Health,
			}, version)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			serverErr := make(chan error, 1)
			go func() { serverErr <- server.Start(ctx) }()

			runErr := manager.Run(ctx)
			cancel()
			if err := <-serverErr; err != nil {
				log.Error().Err(err).Msg("http server failed")
			}
			return runErr
		},
	}
}
