package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/declarr/declarr/internal/config"
	"github.com/declarr/declarr/internal/secrets"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and test the connection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger := config.SetupLogger(cfg.Log.Level)

			ctx := cmd.Context()
			sec, err := secrets.Get(ctx, cfg.Radarr.Secrets(), logger)
			if err != nil {
				return err
			}
			ok, err := secrets.Test(ctx, sec, logger)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("connection test failed: the API key was rejected by %s", sec.HostURL())
			}
			logger.Info("configuration valid, connection test passed",
				"host", sec.HostURL())
			return nil
		},
	}
}
