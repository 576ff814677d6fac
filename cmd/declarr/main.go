// declarr applies declarative YAML configuration to a Radarr instance:
// it creates missing resources, updates drifted ones, and optionally deletes
// what the configuration no longer mentions.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/declarr/declarr/internal/api"
	"github.com/declarr/declarr/internal/config"
	"github.com/declarr/declarr/internal/reconcile"
	"github.com/declarr/declarr/internal/secrets"
)

const version = "0.1.0"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "declarr",
		Short: "Declarative configuration for Radarr",
		Long: "declarr reconciles a Radarr instance against a declarative YAML\n" +
			"configuration: download clients, indexers, quality profiles, custom\n" +
			"formats, notifications and more.",
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "declarr.yaml", "path to configuration file")

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(
		newVersionCmd(),
		newSyncCmd(),
		newDumpCmd(),
		newCheckCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("declarr v%s\n", version)
		},
	}
}

// connect loads the configuration, resolves the instance credentials and
// builds the reconciliation environment shared by the remote-facing commands.
func connect(cmd *cobra.Command) (*config.Config, reconcile.Env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, reconcile.Env{}, err
	}
	logger := config.SetupLogger(cfg.Log.Level)

	sec, err := secrets.Get(cmd.Context(), cfg.Radarr.Secrets(), logger)
	if err != nil {
		return nil, reconcile.Env{}, err
	}

	client := api.NewClient(sec.HostURL(), sec.APIKey, logger)
	env := reconcile.Env{
		Client: client,
		Log:    logger,
		Report: &reconcile.LogReporter{Log: logger},
	}
	return cfg, env, nil
}

func logResult(log *slog.Logger, changed bool) {
	if changed {
		log.Info("remote instance updated")
	} else {
		log.Info("remote instance already up to date")
	}
}
