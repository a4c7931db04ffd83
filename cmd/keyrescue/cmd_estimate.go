// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/keyrescue/pkg/config"
	"github.com/AleutianAI/keyrescue/pkg/generator"
	"github.com/AleutianAI/keyrescue/pkg/ux"
)

var (
	estimateConfigPath string
	estimatePerAttempt time.Duration // Assumed oracle cost for the ETA line
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Report the candidate-space size for a configuration",
	Long: `Computes how many candidates a configuration expands to, without
touching any vault. The count is exact: running the search against an
always-failing oracle performs exactly this many attempts.

Examples:
  keyrescue estimate -c recovery.yaml
  keyrescue estimate -c recovery.yaml --per-attempt 150ms`,
	RunE: runEstimateCommand,
}

func init() {
	estimateCmd.Flags().StringVarP(&estimateConfigPath, "config", "c", "recovery.yaml",
		"Recovery configuration file (YAML)")
	estimateCmd.Flags().DurationVar(&estimatePerAttempt, "per-attempt", 150*time.Millisecond,
		"Assumed oracle cost per attempt for the worst-case duration line")
}

func runEstimateCommand(cmd *cobra.Command, args []string) error {
	out := ux.NewRenderer(os.Stdout)

	cfg, err := config.Load(estimateConfigPath)
	if err != nil {
		return err
	}

	bases, err := generator.GenerateBaseCombinations(cfg.BaseWords)
	if err != nil {
		return err
	}
	total, err := generator.EstimateCount(cfg)
	if err != nil {
		return err
	}

	digits := len(generator.Unique(cfg.Digits))
	symbols := len(generator.Unique(cfg.Symbols))

	fmt.Printf("base combinations: %d\n", len(bases))
	fmt.Printf("digit suffixes:    %d\n", digits)
	fmt.Printf("symbols:           %d\n", symbols)
	fmt.Printf("total candidates:  %d\n", total)

	worst := time.Duration(total) * estimatePerAttempt
	out.Info("worst case at %s/attempt, single worker: %s",
		estimatePerAttempt, worst.Round(time.Second))
	return nil
}
