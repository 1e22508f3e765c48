// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

package main

import (
	"net/url"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const redacted = "<redacted>"

// NewConfigCmd creates the config subcommand.
func NewConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration after merging defaults, the config file, the
environment and flags. Secrets are redacted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if cfg.Auth.JWTSecret != "" {
				cfg.Auth.JWTSecret = redacted
			}
			if cfg.Database.URL != "" {
				cfg.Database.URL = redactURL(cfg.Database.URL)
			}

			out, err := yaml.Marshal(cfg)
			if err != nil {
				return oops.Wrapf(err, "encode config")
			}
			cmd.Print(string(out))
			return nil
		},
	}
}

// redactURL masks the password in a connection URL.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return redacted
	}
	return u.Redacted()
}
