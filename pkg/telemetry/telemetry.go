// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package telemetry wires OpenTelemetry metrics with a Prometheus exporter
// for long-running recovery searches.
//
// A search that grinds through a large candidate space against a slow
// oracle can run for hours; the /metrics endpoint lets operators watch
// attempt counts and throughput without attaching to the process.
package telemetry

import (
	"context"
	"fmt"
	"net/http"

	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// meterName identifies this instrumentation scope.
const meterName = "github.com/AleutianAI/keyrescue"

// Telemetry owns the meter provider and the Prometheus registry behind it.
type Telemetry struct {
	provider *sdkmetric.MeterProvider
	registry *prometheus.Registry
	metrics  *Metrics
}

// Init builds the metric pipeline: Prometheus registry, OTel exporter,
// meter provider, and the pre-defined instrument set.
//
// Outputs:
//   - *Telemetry: Ready pipeline; callers expose Handler() over HTTP.
//   - error: Non-nil when exporter or instrument creation fails.
func Init(serviceVersion string) (*Telemetry, error) {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("telemetry: creating prometheus exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName("keyrescue"),
		semconv.ServiceVersion(serviceVersion),
	)

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)

	metrics, err := newMetrics(provider.Meter(meterName))
	if err != nil {
		return nil, fmt.Errorf("telemetry: creating instruments: %w", err)
	}

	return &Telemetry{
		provider: provider,
		registry: registry,
		metrics:  metrics,
	}, nil
}

// Metrics returns the instrument set.
func (t *Telemetry) Metrics() *Metrics {
	return t.metrics
}

// Handler returns an HTTP handler serving the Prometheus scrape endpoint.
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if err := t.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("telemetry: shutting down meter provider: %w", err)
	}
	return nil
}

// Meter exposes the underlying meter for callers that need ad-hoc
// instruments beyond the pre-defined set.
func (t *Telemetry) Meter() metric.Meter {
	return t.provider.Meter(meterName)
}
