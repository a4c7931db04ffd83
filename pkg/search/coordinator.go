// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package search races password candidates against a validation oracle
// across a fixed pool of workers and stops at the first match.
//
// The coordinator partitions the base-combination list into contiguous,
// non-overlapping slices, one per worker. Workers expand their slice's
// full digits x symbols cross product in nested order and poll a shared
// found flag between candidates, so the first success stops everyone
// without forceful termination.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/keyrescue/pkg/config"
	"github.com/AleutianAI/keyrescue/pkg/generator"
	"github.com/AleutianAI/keyrescue/pkg/oracle"
	"github.com/AleutianAI/keyrescue/pkg/telemetry"
)

const (
	// MinWorkers is the lowest accepted worker count.
	MinWorkers = 1

	// MaxWorkers is the highest accepted worker count.
	MaxWorkers = 100

	// DefaultWorkers is used when the configuration leaves the worker
	// count unset.
	DefaultWorkers = 4
)

var (
	// ErrNilOracle is returned by New when no oracle is supplied.
	ErrNilOracle = fmt.Errorf("search: oracle is nil")

	// ErrInvalidWorkerCount is returned by New when the worker count is
	// outside [MinWorkers, MaxWorkers].
	ErrInvalidWorkerCount = fmt.Errorf("search: worker count outside [%d, %d]", MinWorkers, MaxWorkers)
)

// Options configures a Coordinator.
type Options struct {
	// Workers is the maximum worker count.
	// Default: DefaultWorkers
	Workers int

	// Logger receives progress and completion events. The matched
	// password is never logged.
	// Default: slog.Default()
	Logger *slog.Logger

	// Metrics, when non-nil, receives attempt and outcome instruments.
	Metrics *telemetry.Metrics
}

// searchState is the shared mutable state of one Recover call. Created
// fresh per call; nothing survives into the next search.
type searchState struct {
	attempts atomic.Uint64
	found    atomic.Bool
	winner   atomic.Pointer[string]
}

// Coordinator owns the worker pool for recovery searches.
//
// Thread Safety: a Coordinator may be shared, but Recover calls are
// expected to run one at a time; concurrent calls would interleave their
// progress counters in Attempts().
type Coordinator struct {
	oracle  oracle.Oracle
	workers int
	logger  *slog.Logger
	metrics *telemetry.Metrics

	// state points at the current (or most recent) search's shared state
	// so a ProgressSampler can read the live attempt counter.
	state atomic.Pointer[searchState]
}

// New creates a Coordinator.
//
// Inputs:
//   - o: The validation oracle. Must be non-nil and safe for concurrent
//     Validate calls.
//   - opts: Pool options. A zero Workers value selects DefaultWorkers.
//
// Outputs:
//   - *Coordinator: Ready for Recover calls.
//   - error: ErrNilOracle or ErrInvalidWorkerCount on bad input.
func New(o oracle.Oracle, opts Options) (*Coordinator, error) {
	if o == nil {
		return nil, ErrNilOracle
	}
	if opts.Workers == 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Workers < MinWorkers || opts.Workers > MaxWorkers {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkerCount, opts.Workers)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Coordinator{
		oracle:  o,
		workers: opts.Workers,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}, nil
}

// Attempts returns the attempt count of the current or most recent
// search. Zero before the first Recover call.
func (c *Coordinator) Attempts() uint64 {
	if s := c.state.Load(); s != nil {
		return s.attempts.Load()
	}
	return 0
}

// Recover enumerates the candidate space for cfg and races it against the
// oracle.
//
// Inputs:
//   - ctx: Cancelling it interrupts the search; workers stop at the next
//     candidate boundary and Recover returns ctx's error alongside an
//     OutcomeInterrupted result.
//   - cfg: The search space. Must be non-nil and valid.
//
// Outputs:
//   - *Result: Attempts, elapsed time, outcome, and the matched password
//     when found. An empty base-combination space yields an immediate
//     OutcomeExhausted result with zero attempts.
//   - error: Validation errors before dispatch, or ctx's error when
//     interrupted. A fruitless but completed search is not an error.
//
// When the configured space holds more than one valid password, which one
// comes back is a race between workers. That non-determinism is intended;
// callers needing a canonical answer must derive it themselves.
func (c *Coordinator) Recover(ctx context.Context, cfg *config.Config) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("search: config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	bases, err := generator.SortedBases(cfg.BaseWords)
	if err != nil {
		return nil, err
	}

	state := &searchState{}
	c.state.Store(state)

	if len(bases) == 0 {
		c.logger.Info("candidate space is empty, nothing to search")
		return &Result{Outcome: OutcomeExhausted}, nil
	}

	digits := generator.Unique(cfg.Digits)
	symbols := generator.Unique(cfg.Symbols)

	effective := c.workers
	if len(bases) < effective {
		effective = len(bases)
	}
	chunk := len(bases) / effective
	if chunk < 1 {
		chunk = 1
	}

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.logger.Info("dispatching search",
		slog.Int("bases", len(bases)),
		slog.Int("digits", len(digits)),
		slog.Int("symbols", len(symbols)),
		slog.Int("workers", effective),
		slog.String("oracle", c.oracle.Description()))

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < effective; i++ {
		lo := i * chunk
		hi := lo + chunk
		if i == effective-1 || hi > len(bases) {
			hi = len(bases)
		}
		wg.Add(1)
		go func(id int, slice []string) {
			defer wg.Done()
			c.runWorker(workerCtx, cancel, id, slice, digits, symbols, state)
		}(i, bases[lo:hi])
	}

	wg.Wait()
	elapsed := time.Since(start)

	result := &Result{
		Attempts: state.attempts.Load(),
		Elapsed:  elapsed,
	}

	switch {
	case state.found.Load():
		result.Outcome = OutcomeFound
		if p := state.winner.Load(); p != nil {
			result.Password = *p
		}
	case ctx.Err() != nil:
		result.Outcome = OutcomeInterrupted
	default:
		result.Outcome = OutcomeExhausted
	}

	c.metrics.RecordSearch(context.WithoutCancel(ctx), result.Outcome.String(), elapsed)

	c.logger.Info("search complete",
		slog.String("outcome", result.Outcome.String()),
		slog.Uint64("attempts", result.Attempts),
		slog.Duration("elapsed", elapsed))

	if result.Outcome == OutcomeInterrupted {
		return result, ctx.Err()
	}
	return result, nil
}

// runWorker processes one contiguous slice of the base list in nested
// base -> digit -> symbol order, stopping as soon as another worker wins
// or the context is cancelled.
func (c *Coordinator) runWorker(
	ctx context.Context,
	cancel context.CancelFunc,
	id int,
	bases []string,
	digits []string,
	symbols []string,
	state *searchState,
) {
	for _, base := range bases {
		for _, d := range digits {
			for _, s := range symbols {
				if state.found.Load() || ctx.Err() != nil {
					return
				}

				candidate := base + d + s
				state.attempts.Add(1)

				ok, err := c.oracle.Validate(ctx, candidate)
				if err != nil {
					// Oracle fault. The candidate stays out of the log;
					// treat it as not matched and move on.
					c.logger.Debug("oracle fault, skipping candidate",
						slog.Int("worker", id),
						slog.String("error", err.Error()))
					continue
				}
				if !ok {
					continue
				}

				// First successful CAS owns the result slot.
				if state.found.CompareAndSwap(false, true) {
					state.winner.Store(&candidate)
					c.logger.Info("candidate accepted by oracle",
						slog.Int("worker", id),
						slog.Uint64("attempts_so_far", state.attempts.Load()))
					cancel()
				}
				return
			}
		}
	}
}
