// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/fraudguard/fraudguard/internal/config"
)

// NewRootCmd creates the root command for the FraudGuard CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fraudguard",
		Short: "FraudGuard - payment fraud detection API server",
		Long: `FraudGuard authenticates users with signed session tokens and forwards
simulated payment transactions to a machine-learning scoring service.`,
		SilenceUsage: true,
	}

	addGlobalFlags(cmd)

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// addGlobalFlags registers the config flags shared by every subcommand.
func addGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "config file path (YAML)")
	cmd.PersistentFlags().String("env-file", ".env", "dotenv file merged under the process environment")
	config.RegisterFlags(cmd.PersistentFlags())
}

// loadConfig builds the effective configuration for cmd from its flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	file, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err //nolint:wrapcheck // flag lookup errors are programmer errors
	}
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return nil, err //nolint:wrapcheck // flag lookup errors are programmer errors
	}
	return config.Load(config.Options{
		File:    file,
		EnvFile: envFile,
		Flags:   cmd.Flags(),
	})
}
