// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import "time"

// Outcome classifies how a search ended.
type Outcome int

const (
	// OutcomeExhausted means every candidate was tried without a match.
	// Also used for a degenerate empty candidate space.
	OutcomeExhausted Outcome = iota

	// OutcomeFound means the oracle accepted a candidate.
	OutcomeFound

	// OutcomeInterrupted means the caller's context was cancelled before
	// the space was exhausted.
	OutcomeInterrupted
)

// String returns the outcome label used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeFound:
		return "found"
	case OutcomeInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Result is the outcome record of a single Recover call. It is assembled
// exactly once, after all workers have stopped, and is immutable after
// that.
type Result struct {
	// Password is the matched candidate, empty unless Outcome is
	// OutcomeFound. Callers own its secure display and storage.
	Password string

	// Attempts is the number of candidates actually sent to the oracle.
	Attempts uint64

	// Elapsed is wall-clock time from just before worker dispatch to just
	// after the last worker exited.
	Elapsed time.Duration

	// Outcome classifies the ending.
	Outcome Outcome
}

// Success reports whether the search found the password.
func (r *Result) Success() bool {
	return r.Outcome == OutcomeFound
}
