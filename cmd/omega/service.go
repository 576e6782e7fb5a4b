package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omegacore/omega/internal/service"
)

func buildServiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage omega's user-level service installation",
	}
	cmd.AddCommand(buildServiceInstallCmd(), buildServiceRestartCmd())
	return cmd
}

func buildServiceInstallCmd() *cobra.Command {
	var (
		configPath string
		overwrite  bool
	)

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Write a systemd (Linux) or launchd (macOS) user service file",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := service.InstallUserService(configPath, overwrite)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", result.Path)
			for _, step := range result.Instructions {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", step)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config.toml the service should run against")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing service file")
	return cmd
}

func buildServiceRestartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Reload and restart the installed user service",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := service.RestartUserService(cmd.Context())
			for _, step := range steps {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", step)
			}
			return err
		},
	}
}
