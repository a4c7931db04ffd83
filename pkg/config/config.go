// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config defines the recovery configuration: the structural building
// blocks the search is allowed to combine.
//
// A configuration is three ordered, non-empty string lists (base words,
// digit strings, terminal symbols) plus an optional worker count. Once
// loaded it is treated as read-only; nothing in the search path mutates it.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// validate is the shared validator instance. validator.Validate is safe for
// concurrent use and caches struct metadata, so one instance serves the
// whole process.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Config describes one recovery search space.
type Config struct {
	// BaseWords are the candidate base words. At least one is required.
	BaseWords []string `yaml:"base_words" validate:"required,min=1,dive,required"`

	// Digits are the numeric suffixes to try, each 1-5 digit characters.
	Digits []string `yaml:"digits" validate:"required,min=1,dive,number,min=1,max=5"`

	// Symbols are the terminal symbols to try, each a single character.
	Symbols []string `yaml:"symbols" validate:"required,min=1,dive,len=1"`

	// Workers is the worker thread count for the search.
	// Zero means "use the coordinator default". Bounded to [1,100] when set.
	Workers int `yaml:"workers" validate:"omitempty,gte=1,lte=100"`
}

// Load reads and validates a YAML configuration file.
//
// Inputs:
//   - path: Path to the YAML file.
//
// Outputs:
//   - *Config: Parsed, validated configuration.
//   - error: Non-nil on read, parse, or validation failure.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration against its structural constraints.
// It returns nil only when all three lists are non-empty and every entry is
// well formed.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config: nil configuration")
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Fingerprint returns a stable hex digest of the configuration contents.
// Used to correlate history records with the search space that produced
// them without storing the word lists themselves.
func (c *Config) Fingerprint() string {
	h := sha256.New()
	for _, section := range [][]string{c.BaseWords, c.Digits, c.Symbols} {
		h.Write([]byte(strings.Join(section, "\x1f")))
		h.Write([]byte{'\x1e'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
