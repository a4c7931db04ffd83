// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/keyrescue/pkg/history"
	"github.com/AleutianAI/keyrescue/pkg/ux"
)

var (
	historyDir  string
	historyJSON bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past recovery searches",
	Long: `Lists completed searches from the local history store. Records
carry outcomes, attempt counts, and timing; recovered passwords are never
stored, only a SHA-256 digest.`,
	RunE: runHistoryCommand,
}

func init() {
	historyCmd.Flags().StringVar(&historyDir, "dir", defaultHistoryDir(),
		"History store directory")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false,
		"Output as JSON for scripting")
}

func runHistoryCommand(cmd *cobra.Command, args []string) error {
	out := ux.NewRenderer(os.Stdout)

	if historyDir == "" {
		return fmt.Errorf("history: no store directory configured")
	}
	store, err := history.Open(history.Config{Path: historyDir})
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	records, err := store.List()
	if err != nil {
		return err
	}

	if historyJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		out.Info("no searches recorded yet")
		return nil
	}
	for _, rec := range records {
		fmt.Printf("%s  %-11s  attempts=%-8d  elapsed=%-10s  %s\n",
			rec.StartedAt.Format(time.RFC3339),
			rec.Outcome,
			rec.Attempts,
			rec.Elapsed.Round(time.Millisecond),
			rec.Oracle)
	}
	return nil
}
