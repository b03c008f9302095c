// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/bienesraices/bienesraices/internal/xdg"
)

// configFile is the --config flag shared by all subcommands.
var configFile string

// NewRootCmd creates the root command for the BienesRaices CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bienesraices",
		Short: "BienesRaices - real estate listings",
		Long: `BienesRaices serves the account pages of the listings site:
registration, email confirmation, login and password reset.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML, default $XDG_CONFIG_HOME/bienesraices/config.yaml)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// resolveConfigFile returns --config, or the XDG config file when it exists.
func resolveConfigFile(getenv func(string) string) string {
	if configFile != "" {
		return configFile
	}
	return xdg.DefaultConfigFile(getenv)
}
