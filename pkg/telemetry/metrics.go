// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics contains the pre-defined instruments for the recovery search.
// All instruments use the "keyrescue_" prefix.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// AttemptsTotal counts oracle invocations across all searches.
	AttemptsTotal metric.Int64Counter

	// AttemptRate records the most recently sampled attempts/second.
	AttemptRate metric.Float64Gauge

	// SearchesTotal counts completed searches by outcome.
	SearchesTotal metric.Int64Counter

	// SearchDuration records wall-clock search duration in seconds.
	SearchDuration metric.Float64Histogram
}

// newMetrics creates the instrument set on the given meter.
func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.AttemptsTotal, err = meter.Int64Counter(
		"keyrescue_attempts_total",
		metric.WithDescription("Total candidate validations sent to the oracle"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating attempts counter: %w", err)
	}

	m.AttemptRate, err = meter.Float64Gauge(
		"keyrescue_attempt_rate",
		metric.WithDescription("Sampled oracle throughput in attempts per second"),
		metric.WithUnit("1/s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rate gauge: %w", err)
	}

	m.SearchesTotal, err = meter.Int64Counter(
		"keyrescue_searches_total",
		metric.WithDescription("Completed searches by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating searches counter: %w", err)
	}

	m.SearchDuration, err = meter.Float64Histogram(
		"keyrescue_search_duration_seconds",
		metric.WithDescription("Wall-clock search duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return m, nil
}

// AddAttempts records delta oracle invocations.
func (m *Metrics) AddAttempts(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.AttemptsTotal.Add(ctx, delta)
}

// RecordRate records a sampled throughput reading.
func (m *Metrics) RecordRate(ctx context.Context, perSecond float64) {
	if m == nil {
		return
	}
	m.AttemptRate.Record(ctx, perSecond)
}

// RecordSearch records one completed search.
func (m *Metrics) RecordSearch(ctx context.Context, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.SearchesTotal.Add(ctx, 1, attrs)
	m.SearchDuration.Record(ctx, elapsed.Seconds(), attrs)
}
