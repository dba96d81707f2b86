package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"rebalance-route-service/internal/config"
	"rebalance-route-service/internal/platform/obs"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "rebalance",
	Short:        "Plan bike-share rebalancing routes for a single truck",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// loadConfig reads the configuration and returns a context carrying the
// command logger.
func loadConfig(ctx context.Context, component string) (*config.Config, context.Context, zerolog.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, ctx, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	obs.SetLevel(cfg.Logging.Level)
	// logs go to stderr so stdout stays a clean report
	logger := obs.NewLoggerTo(rootCmd.ErrOrStderr(), component)
	return cfg, logger.WithContext(ctx), logger, nil
}
