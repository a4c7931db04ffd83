// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// keyrescue recovers passwords of a known structural shape from
// Aleutian-encrypted vault files.
//
// A recovery configuration names the building blocks the owner remembers
// (base words, digit suffixes, terminal symbols); keyrescue enumerates
// every [base][digits][symbol] candidate and races them across workers
// against the vault.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/keyrescue/pkg/logging"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// =============================================================================
// GLOBAL FLAGS
// =============================================================================

var (
	flagLogLevel string // Minimum log level
	flagLogDir   string // Optional log directory for file logging
	flagJSONLogs bool   // JSON logs on stderr
	flagQuiet    bool   // Suppress stderr logs
)

// appLogger is the process logger, constructed in PersistentPreRunE and
// closed after Execute returns.
var appLogger *logging.Logger

var rootCmd = &cobra.Command{
	Use:   "keyrescue",
	Short: "Structured password recovery for Aleutian vault files",
	Long: `keyrescue enumerates password candidates of the fixed shape
[base][digits][symbol] from a small recovery configuration and races
them against an encrypted vault until one opens it.

Examples:
  keyrescue estimate -c recovery.yaml
  keyrescue run -c recovery.yaml --vault backup.akv
  keyrescue vault init --out backup.akv
  keyrescue history --dir ~/.keyrescue/history`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(flagLogLevel)
		if err != nil {
			return err
		}
		appLogger, err = logging.New(logging.Config{
			Level:  level,
			LogDir: flagLogDir,
			JSON:   flagJSONLogs,
			Quiet:  flagQuiet,
		})
		if err != nil {
			return err
		}
		slog.SetDefault(appLogger.Logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info",
		"Minimum log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogDir, "log-dir", "",
		"Write JSON logs to this directory in addition to stderr")
	rootCmd.PersistentFlags().BoolVar(&flagJSONLogs, "json-logs", false,
		"Emit stderr logs as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false,
		"Suppress stderr logs")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(estimateCmd)
	rootCmd.AddCommand(vaultCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	err := rootCmd.Execute()
	if appLogger != nil {
		_ = appLogger.Close()
	}
	if err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
