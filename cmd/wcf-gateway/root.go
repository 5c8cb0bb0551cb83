package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// newRootCmd builds the command tree. Running the binary without a
// subcommand serves, like "wcf-gateway serve".
func newRootCmd() *cobra.Command {
	var configPath string

	serve := func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), configPath, cmd.Flags().Changed("config"))
	}

	root := &cobra.Command{
		Use:           "wcf-gateway",
		Short:         "REST gateway for a WeChatFerry session",
		Long:          "wcf-gateway exposes a WeChatFerry session as JSON over HTTP, streams attachments and relays captured messages over WebSocket.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", getConfigPath(), "path to the YAML configuration file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP gateway",
		Args:  cobra.NoArgs,
		RunE:  serve,
	})

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "wcf-gateway %s (commit %s, built %s)\n", version, commit, date)
			return err
		},
	})

	return root
}

// getConfigPath returns the configuration file path.
// Uses WCFGATEWAY_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("WCFGATEWAY_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
