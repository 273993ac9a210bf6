package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Overmuse/risk-manager/internal/broker"
	"github.com/Overmuse/risk-manager/internal/prices"
	"github.com/Overmuse/risk-manager/internal/stream"
)

func healthCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check connectivity to redis and the account API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			failed := false
			report := func(name string, err error) {
				if err != nil {
					failed = true
					fmt.Printf("%-8s FAIL  %v\n", name, err)
					return
				}
				fmt.Printf("%-8s OK\n", name)
			}

			priceSource := prices.NewRedisSource(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
			defer priceSource.Close()
			report("redis", priceSource.Ping(cmd.Context()))

			bus := stream.NewRedisBus(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
			defer bus.Close()
			report("stream", bus.Health(cmd.Context()))

			client := broker.NewClient(broker.Config{
				BaseURL:   cfg.Broker.BaseURL,
				KeyID:     cfg.Broker.KeyID,
				SecretKey: cfg.Broker.SecretKey,
				Timeout:   cfg.Broker.Timeout.Std(),
			})
			_, err = client.GetAccount(cmd.Context())
			report("broker", err)

			if failed {
				return fmt.Errorf("one or more dependencies are unhealthy")
			}
			return nil
		},
	}
}
