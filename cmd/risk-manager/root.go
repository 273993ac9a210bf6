package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Overmuse/risk-manager/internal/config"
)

func Execute(ctx context.Context) error {
	var configPath string
	root := &cobra.Command{
		Use:   "risk-manager",
		Short: "Real-time trade risk admission engine",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	root.AddCommand(runCmd(&configPath))
	root.AddCommand(checkCmd(&configPath))
	root.AddCommand(healthCmd(&configPath))
	root.AddCommand(versionCmd())
	return root.ExecuteContext(ctx)
}

// loadConfig reads the config file and applies the configured log level.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}
	return cfg, nil
}
