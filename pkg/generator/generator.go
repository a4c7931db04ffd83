// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package generator expands a recovery configuration into the full set of
// password candidates to test.
//
// Candidates follow a fixed three-part shape:
//
//	[base][digits][symbol]
//
// where the base is derived from one or two configured words under several
// capitalization strategies and, for word pairs, four separator variants.
// The generator is pure: no I/O, no concurrency, no retained state.
package generator

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/AleutianAI/keyrescue/pkg/config"
)

const (
	// MinBaseLen is the minimum length of a usable base combination.
	MinBaseLen = 5

	// MaxBaseLen is the maximum length of a usable base combination.
	MaxBaseLen = 12
)

// separators are the joiners tried between two-word combinations.
var separators = []string{"", "-", "_", "."}

// ErrEmptyWordList is returned when base combination generation is asked to
// work from no words at all.
var ErrEmptyWordList = fmt.Errorf("generator: base word list is empty")

// GenerateBaseCombinations derives every length-bounded base string from the
// configured words.
//
// Inputs:
//   - words: Candidate base words. Duplicates are tolerated; the result is a
//     set, so they cannot inflate it.
//
// Outputs:
//   - map[string]struct{}: Deduplicated base combinations, each within
//     [MinBaseLen, MaxBaseLen] runes.
//   - error: ErrEmptyWordList when words is nil or empty.
//
// Single words within the length bound contribute five capitalization
// variants (as-is, lower, upper, capitalized, title-case). Every ordered pair
// of distinct words is tried with each separator in both orderings; pairs
// contribute lowercase, uppercase, and both-capitalized variants when the
// joined string fits the bound. A word too short or too long on its own may
// still appear inside a two-word combination.
//
// An empty result is not an error: it means no word or pair fit the bound.
func GenerateBaseCombinations(words []string) (map[string]struct{}, error) {
	if len(words) == 0 {
		return nil, ErrEmptyWordList
	}

	combos := make(map[string]struct{})

	for _, w := range words {
		if !lengthOK(w) {
			continue
		}
		combos[w] = struct{}{}
		combos[strings.ToLower(w)] = struct{}{}
		combos[strings.ToUpper(w)] = struct{}{}
		combos[Capitalize(w)] = struct{}{}
		combos[TitleCase(w)] = struct{}{}
	}

	// Symmetric pair loop: both (w1,w2) and (w2,w1) are visited.
	for _, w1 := range words {
		for _, w2 := range words {
			if w1 == w2 {
				continue
			}
			for _, sep := range separators {
				joined := w1 + sep + w2
				if !lengthOK(joined) {
					continue
				}
				combos[strings.ToLower(joined)] = struct{}{}
				combos[strings.ToUpper(joined)] = struct{}{}
				combos[Capitalize(w1)+sep+Capitalize(w2)] = struct{}{}
			}
		}
	}

	return combos, nil
}

// GenerateAll expands a full configuration into the complete candidate set.
//
// Inputs:
//   - cfg: Recovery configuration. Must be non-nil and pass its own
//     validation (all three lists non-empty).
//
// Outputs:
//   - map[string]struct{}: Every candidate string base+digits+symbol.
//   - error: Non-nil when cfg is nil or invalid.
//
// The result has set semantics: duplicate words, digit strings, or symbols
// in the configuration cannot produce duplicate candidates.
func GenerateAll(cfg *config.Config) (map[string]struct{}, error) {
	if cfg == nil {
		return nil, fmt.Errorf("generator: config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("generator: invalid config: %w", err)
	}

	bases, err := GenerateBaseCombinations(cfg.BaseWords)
	if err != nil {
		return nil, err
	}

	digits := Unique(cfg.Digits)
	symbols := Unique(cfg.Symbols)

	candidates := make(map[string]struct{}, len(bases)*len(digits)*len(symbols))
	for base := range bases {
		for _, d := range digits {
			for _, s := range symbols {
				candidates[base+d+s] = struct{}{}
			}
		}
	}
	return candidates, nil
}

// EstimateCount returns the exact size of the candidate space for cfg:
// |base combinations| x |unique digits| x |unique symbols|.
//
// This is a hard cardinality contract, not an approximation: it always
// equals len(GenerateAll(cfg)) for the same configuration.
func EstimateCount(cfg *config.Config) (int, error) {
	if cfg == nil {
		return 0, fmt.Errorf("generator: config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return 0, fmt.Errorf("generator: invalid config: %w", err)
	}

	bases, err := GenerateBaseCombinations(cfg.BaseWords)
	if err != nil {
		return 0, err
	}
	return len(bases) * len(Unique(cfg.Digits)) * len(Unique(cfg.Symbols)), nil
}

// SortedBases returns the base combinations for words as a sorted slice.
//
// Callers must not read meaning into the order; it exists so the search can
// partition a stable slice across workers.
func SortedBases(words []string) ([]string, error) {
	set, err := GenerateBaseCombinations(words)
	if err != nil {
		return nil, err
	}
	bases := make([]string, 0, len(set))
	for b := range set {
		bases = append(bases, b)
	}
	sort.Strings(bases)
	return bases, nil
}

// Capitalize uppercases the first letter and lowercases the rest.
// Empty input is returned unchanged.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// TitleCase applies Capitalize to each whitespace-separated token and
// rejoins with single spaces. Empty input is returned unchanged.
func TitleCase(s string) string {
	if s == "" {
		return s
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return s
	}
	for i, f := range fields {
		fields[i] = Capitalize(f)
	}
	return strings.Join(fields, " ")
}

// Unique returns the distinct values of in, preserving first-seen order.
func Unique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// lengthOK reports whether s fits the base combination length bound.
func lengthOK(s string) bool {
	n := utf8.RuneCountInString(s)
	return n >= MinBaseLen && n <= MaxBaseLen
}
