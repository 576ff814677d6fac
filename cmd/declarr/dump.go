package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the remote instance's current configuration as YAML",
		Long: "Reads the full remote configuration and writes it to standard output\n" +
			"in the configuration file format, as a starting point for a config.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, env, err := connect(cmd)
			if err != nil {
				return err
			}

			if err := cfg.Radarr.Settings.FromRemote(cmd.Context(), env); err != nil {
				return err
			}

			out, err := yaml.Marshal(map[string]any{
				"radarr": map[string]any{
					"hostname": cfg.Radarr.Hostname,
					"port":     cfg.Radarr.Port,
					"protocol": cfg.Radarr.Protocol,
					"settings": &cfg.Radarr.Settings,
				},
			})
			if err != nil {
				return fmt.Errorf("marshal settings: %w", err)
			}
			_, err = os.Stdout.Write(out)
			return err
		},
	}
}
