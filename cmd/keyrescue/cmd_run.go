// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/keyrescue/pkg/config"
	"github.com/AleutianAI/keyrescue/pkg/history"
	"github.com/AleutianAI/keyrescue/pkg/oracle"
	"github.com/AleutianAI/keyrescue/pkg/search"
	"github.com/AleutianAI/keyrescue/pkg/secret"
	"github.com/AleutianAI/keyrescue/pkg/telemetry"
	"github.com/AleutianAI/keyrescue/pkg/ux"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	runConfigPath     string // Recovery configuration file
	runVaultPath      string // Vault file to recover
	runWorkers        int    // Worker override (0 = config/default)
	runSampleInterval time.Duration
	runMetricsListen  string // Optional Prometheus listen address
	runShowPassword   bool   // Print the recovered password
	runHistoryDir     string // History store directory ("" disables)
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a recovery search against a vault",
	Long: `Enumerates every candidate for the configured search space and
races them across workers against the vault until one opens it.

A SIGINT or SIGTERM stops all workers cooperatively and reports the
attempt count reached so far.

Examples:
  keyrescue run -c recovery.yaml --vault backup.akv
  keyrescue run -c recovery.yaml --vault backup.akv -n 8 --show-password
  keyrescue run -c recovery.yaml --vault backup.akv --metrics-listen :9464`,
	RunE: runRunCommand,
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "recovery.yaml",
		"Recovery configuration file (YAML)")
	runCmd.Flags().StringVar(&runVaultPath, "vault", "",
		"Vault file to recover (required)")
	runCmd.Flags().IntVarP(&runWorkers, "workers", "n", 0,
		"Worker count, 1-100 (default: config value, then 4)")
	runCmd.Flags().DurationVar(&runSampleInterval, "sample-interval", search.DefaultSampleInterval,
		"Throughput reporting interval")
	runCmd.Flags().StringVar(&runMetricsListen, "metrics-listen", "",
		"Serve Prometheus metrics on this address while searching (e.g. :9464)")
	runCmd.Flags().BoolVar(&runShowPassword, "show-password", false,
		"Print the recovered password to stdout")
	runCmd.Flags().StringVar(&runHistoryDir, "history-dir", defaultHistoryDir(),
		"Directory for the search history store (empty to disable)")
	_ = runCmd.MarkFlagRequired("vault")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runRunCommand(cmd *cobra.Command, args []string) error {
	out := ux.NewRenderer(os.Stdout)

	cfg, err := config.Load(runConfigPath)
	if err != nil {
		return err
	}
	if runWorkers != 0 {
		cfg.Workers = runWorkers
	}

	vault, err := oracle.NewVaultOracle(runVaultPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tel *telemetry.Telemetry
	var metrics *telemetry.Metrics
	if runMetricsListen != "" {
		tel, err = telemetry.Init(version)
		if err != nil {
			return err
		}
		metrics = tel.Metrics()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tel.Shutdown(shutdownCtx)
		}()
	}

	coord, err := search.New(vault, search.Options{
		Workers: cfg.Workers,
		Logger:  slog.Default(),
		Metrics: metrics,
	})
	if err != nil {
		return err
	}

	sampler := search.NewProgressSampler(coord.Attempts, search.SamplerOptions{
		Interval: runSampleInterval,
	})
	if metrics != nil {
		sampler.WithMetrics(metrics.AddAttempts, metrics.RecordRate)
	}
	sampler.Start(ctx)
	defer sampler.Stop()

	g, gctx := errgroup.WithContext(ctx)
	if tel != nil {
		g.Go(func() error {
			return serveMetrics(gctx, runMetricsListen, tel)
		})
	}

	result, searchErr := coord.Recover(ctx, cfg)
	stop()
	if err := g.Wait(); err != nil {
		slog.Warn("metrics listener stopped with error", "error", err)
	}

	if result != nil {
		if result.Success() {
			// Park the password in locked memory for the rest of the
			// process lifetime; memguard wipes it even on a late SIGINT.
			if holder, herr := secret.FromString(result.Password); herr != nil {
				slog.Warn("could not move password to locked memory", "error", herr)
			} else {
				defer holder.Destroy()
				defer secret.PurgeAll()
			}
		}
		out.Result(result, runShowPassword)
		recordHistory(result, vault, cfg)
	}

	if searchErr != nil && errors.Is(searchErr, context.Canceled) {
		// Interrupted by the user; the summary above already says so.
		return nil
	}
	return searchErr
}

// serveMetrics runs the Prometheus endpoint until ctx is cancelled.
func serveMetrics(ctx context.Context, addr string, tel *telemetry.Telemetry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", tel.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics listener: %w", err)
	}
	return nil
}

// recordHistory persists the search outcome; failures are logged, never
// fatal.
func recordHistory(result *search.Result, vault *oracle.VaultOracle, cfg *config.Config) {
	if runHistoryDir == "" {
		return
	}
	store, err := history.Open(history.Config{Path: runHistoryDir})
	if err != nil {
		slog.Warn("history store unavailable", "error", err)
		return
	}
	defer func() { _ = store.Close() }()

	rec := history.NewRecord(
		result.Outcome.String(),
		result.Attempts,
		result.Elapsed,
		vault.Description(),
		cfg.Fingerprint(),
		result.Password,
	)
	if err := store.Put(rec); err != nil {
		slog.Warn("could not record search history", "error", err)
	}
}

// defaultHistoryDir returns ~/.keyrescue/history, or "" when the home
// directory is unknown.
func defaultHistoryDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.keyrescue/history"
}
