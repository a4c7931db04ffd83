// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSampleInterval is the ProgressSampler interval when none is set.
const DefaultSampleInterval = 10 * time.Second

// ProgressSampler periodically reads a shared attempt counter and reports
// throughput. It has its own start/stop lifecycle, independent of the
// search it observes: starting it before Recover and stopping it after is
// fine, as is never starting it at all.
//
// Thread Safety: Safe for concurrent use. Start is idempotent until Stop.
type ProgressSampler struct {
	source   func() uint64
	interval time.Duration
	logger   *slog.Logger
	metrics  *telemetryRecorder

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// telemetryRecorder is the slice of telemetry.Metrics the sampler needs.
// Narrowed to an internal struct so a nil metrics set costs nothing.
type telemetryRecorder struct {
	addAttempts func(ctx context.Context, delta int64)
	recordRate  func(ctx context.Context, perSecond float64)
}

// SamplerOptions configures a ProgressSampler.
type SamplerOptions struct {
	// Interval between samples.
	// Default: DefaultSampleInterval
	Interval time.Duration

	// Logger receives the periodic throughput lines.
	// Default: slog.Default()
	Logger *slog.Logger
}

// NewProgressSampler creates a sampler over an attempt-count source,
// typically Coordinator.Attempts.
func NewProgressSampler(source func() uint64, opts SamplerOptions) *ProgressSampler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultSampleInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &ProgressSampler{
		source:   source,
		interval: opts.Interval,
		logger:   opts.Logger,
	}
}

// WithMetrics attaches telemetry instruments to the sampler. Each sample
// feeds the attempts counter delta and the throughput gauge.
func (p *ProgressSampler) WithMetrics(add func(ctx context.Context, delta int64), rate func(ctx context.Context, perSecond float64)) *ProgressSampler {
	p.metrics = &telemetryRecorder{addAttempts: add, recordRate: rate}
	return p
}

// Start launches the sampling goroutine. A second Start without an
// intervening Stop is a no-op.
func (p *ProgressSampler) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}

	sampleCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true

	go p.loop(sampleCtx, p.done)
}

// Stop halts sampling and waits for the goroutine to exit. Safe to call
// multiple times.
func (p *ProgressSampler) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	<-done
}

// loop emits one throughput report per interval until cancelled.
func (p *ProgressSampler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Baseline of zero: the sampler starts before the search it observes,
	// so the first window owns everything counted so far.
	last := uint64(0)
	lastAt := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			current := p.source()
			delta := current - last
			window := now.Sub(lastAt).Seconds()
			rate := 0.0
			if window > 0 {
				rate = float64(delta) / window
			}

			p.logger.Info("search progress",
				slog.Uint64("attempts", current),
				slog.Float64("attempts_per_sec", rate))

			if p.metrics != nil {
				p.metrics.addAttempts(ctx, int64(delta))
				p.metrics.recordRate(ctx, rate)
			}

			last = current
			lastAt = now
		}
	}
}
