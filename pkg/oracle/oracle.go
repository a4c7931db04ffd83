// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package oracle defines the validation capability the search races against,
// and ships the vault-file backend used in production.
//
// The search core never learns how validation works; it only needs a yes/no
// answer per candidate, possibly delivered slowly. The real backend costs
// 100-200ms per call at default parameters because of its memory-hard key
// derivation, and the coordinator is written for that latency profile.
package oracle

import "context"

// Oracle decides whether a candidate password is correct.
//
// Implementations must be safe for concurrent use: the search invokes
// Validate from many workers at once without external synchronization. If
// an implementation's underlying resource is not reentrant, serializing
// access internally is the implementation's job.
//
// A wrong candidate is a normal (false, nil) result, never an error. Errors
// are reserved for faults in the oracle itself (unreadable backing data,
// broken transport); workers treat those candidates as not matched and move
// on.
type Oracle interface {
	// Validate reports whether candidate is the correct password.
	Validate(ctx context.Context, candidate string) (bool, error)

	// Description returns a short human-readable label for diagnostics.
	// The search logic itself never inspects it.
	Description() string
}

// Func adapts a plain function into an Oracle. Used mainly by tests and by
// callers wiring in external validators.
type Func func(ctx context.Context, candidate string) (bool, error)

// Validate implements Oracle.
func (f Func) Validate(ctx context.Context, candidate string) (bool, error) {
	return f(ctx, candidate)
}

// Description implements Oracle.
func (f Func) Description() string {
	return "inline oracle func"
}
