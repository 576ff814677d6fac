package main

import (
	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	var checkUnmanaged bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the remote instance against the configuration",
		Long: "Creates missing resources, updates drifted ones, and deletes unmanaged\n" +
			"resources in sections where deletion is enabled.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, env, err := connect(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			updated, err := cfg.Radarr.Settings.UpdateRemote(ctx, env, checkUnmanaged)
			if err != nil {
				return err
			}
			deleted, err := cfg.Radarr.Settings.DeleteRemote(ctx, env)
			if err != nil {
				return err
			}
			logResult(env.Log, updated || deleted)
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkUnmanaged, "check-unmanaged", false,
		"warn about remote resources the configuration does not manage")
	return cmd
}
