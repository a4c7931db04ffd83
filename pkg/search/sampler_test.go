// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressSampler_Lifecycle(t *testing.T) {
	var counter atomic.Uint64
	sampler := NewProgressSampler(counter.Load, SamplerOptions{Interval: 5 * time.Millisecond})

	sampler.Start(context.Background())
	// Second Start is a no-op, not a second goroutine.
	sampler.Start(context.Background())

	for i := 0; i < 10; i++ {
		counter.Add(100)
		time.Sleep(2 * time.Millisecond)
	}

	done := make(chan struct{})
	go func() {
		sampler.Stop()
		sampler.Stop() // idempotent
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestProgressSampler_FeedsMetrics(t *testing.T) {
	var counter atomic.Uint64
	var deltaSum atomic.Int64
	var rateCalls atomic.Int64

	sampler := NewProgressSampler(counter.Load, SamplerOptions{Interval: 5 * time.Millisecond}).
		WithMetrics(
			func(ctx context.Context, delta int64) { deltaSum.Add(delta) },
			func(ctx context.Context, perSecond float64) { rateCalls.Add(1) },
		)

	sampler.Start(context.Background())
	counter.Store(500)
	time.Sleep(30 * time.Millisecond)
	sampler.Stop()

	assert.Equal(t, int64(500), deltaSum.Load(), "deltas must sum to the counter total")
	assert.Greater(t, rateCalls.Load(), int64(0))
}

func TestProgressSampler_StopsWithContext(t *testing.T) {
	var counter atomic.Uint64
	sampler := NewProgressSampler(counter.Load, SamplerOptions{Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	sampler.Start(ctx)
	cancel()

	// Stop must still return promptly after external cancellation.
	done := make(chan struct{})
	go func() {
		sampler.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after context cancellation")
	}
}
