// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/keyrescue/pkg/oracle"
	"github.com/AleutianAI/keyrescue/pkg/ux"
)

var (
	vaultInitOut   string
	vaultInitPass  string
	vaultInitFast  bool
	vaultInitNote  string
	vaultCheckPass string
)

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Create and inspect vault files",
}

var vaultInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new encrypted vault file",
	Long: `Seals a small payload under a passphrase using Argon2id and
ChaCha20-Poly1305. The resulting file is what "keyrescue run" recovers
against; it is also useful for recovery drills and tests.

The passphrase is read from stdin unless --passphrase is given (the flag
leaks the passphrase into shell history; prefer stdin).

Examples:
  keyrescue vault init --out backup.akv
  keyrescue vault init --out drill.akv --fast-kdf --note "training drill"`,
	RunE: runVaultInitCommand,
}

var vaultCheckCmd = &cobra.Command{
	Use:   "check <vault>",
	Args:  cobra.ExactArgs(1),
	Short: "Verify that a passphrase opens a vault",
	RunE:  runVaultCheckCommand,
}

func init() {
	vaultInitCmd.Flags().StringVar(&vaultInitOut, "out", "", "Output vault path (required)")
	vaultInitCmd.Flags().StringVar(&vaultInitPass, "passphrase", "",
		"Passphrase (read from stdin when omitted)")
	vaultInitCmd.Flags().BoolVar(&vaultInitFast, "fast-kdf", false,
		"Use weak KDF parameters suitable only for drills and tests")
	vaultInitCmd.Flags().StringVar(&vaultInitNote, "note", "keyrescue vault",
		"Plaintext note sealed inside the vault")
	_ = vaultInitCmd.MarkFlagRequired("out")

	vaultCheckCmd.Flags().StringVar(&vaultCheckPass, "passphrase", "",
		"Passphrase (read from stdin when omitted)")

	vaultCmd.AddCommand(vaultInitCmd)
	vaultCmd.AddCommand(vaultCheckCmd)
}

func runVaultInitCommand(cmd *cobra.Command, args []string) error {
	out := ux.NewRenderer(os.Stdout)

	pass, err := resolvePassphrase(vaultInitPass)
	if err != nil {
		return err
	}

	params := oracle.DefaultKDFParams()
	if vaultInitFast {
		params = oracle.FastKDFParams()
		out.Info("using fast KDF parameters; this vault is NOT suitable for real secrets")
	}

	if err := oracle.Seal(vaultInitOut, pass, []byte(vaultInitNote), params); err != nil {
		return err
	}
	out.Info("vault written to %s", vaultInitOut)
	return nil
}

func runVaultCheckCommand(cmd *cobra.Command, args []string) error {
	out := ux.NewRenderer(os.Stdout)

	vault, err := oracle.NewVaultOracle(args[0])
	if err != nil {
		return err
	}
	pass, err := resolvePassphrase(vaultCheckPass)
	if err != nil {
		return err
	}

	ok, err := vault.Validate(cmd.Context(), pass)
	if err != nil {
		return err
	}
	if !ok {
		out.Error("passphrase does not open %s", args[0])
		return fmt.Errorf("vault check failed")
	}
	out.Info("passphrase opens %s", args[0])
	return nil
}

// resolvePassphrase returns the flag value or reads one line from stdin.
func resolvePassphrase(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(os.Stderr, "passphrase: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	pass := strings.TrimRight(line, "\r\n")
	if pass == "" {
		return "", fmt.Errorf("empty passphrase")
	}
	return pass, nil
}
