/*
Copyright (c) 2026 moyaru <rbffo@icloud.com>
*/

package cmd

import (
	"os"

	"github.com/MOYARU/driftwatch/internal/app/ui"
	"github.com/MOYARU/driftwatch/internal/config"
	appver "github.com/MOYARU/driftwatch/internal/version"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	version = appver.Value

	// Loaded before any subcommand runs; env overrides apply on top of
	// ".driftwatch.yaml" (DRIFTWATCH_CONFIG, DRIFTWATCH_DB, DRIFTWATCH_ADDR).
	policy config.Policy
)

var rootCmd = &cobra.Command{
	Use:   "driftwatch",
	Short: "Driftwatch monitors the security posture of websites over time, scoring TLS state, security headers, and technology fingerprints, and alerting when consecutive assessments drift.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		policy, err = config.LoadPolicy()
		if err != nil {
			return err
		}
		if level, perr := zerolog.ParseLevel(policy.LogLevel); perr == nil {
			zerolog.SetGlobalLevel(level)
		}
		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version

	rootCmd.Long = ui.AsciiArt + `
Driftwatch keeps watch over the security posture of websites you own.
Each assessment probes TLS, security headers, and the technology
fingerprint, scores the result 0-100, and compares it against the
previous run. Regressions raise alerts; alerts batch into email digests.

Example:
  driftwatch scan https://example.com
  driftwatch scan https://example.com --json
  driftwatch targets add https://example.com --frequency hourly
  driftwatch monitor run-due
  driftwatch serve

Configuration comes from .driftwatch.yaml (override the path with
DRIFTWATCH_CONFIG). See also DRIFTWATCH_DB and DRIFTWATCH_ADDR.

This tool is intended for monitoring assets you own or have explicit permission to assess.
`
}
