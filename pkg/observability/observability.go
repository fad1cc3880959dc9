// Copyright 2025 FinSight AI
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package observability exposes request and pipeline metrics through the
// OpenTelemetry Prometheus exporter.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Recorder receives measurements from the orchestrator. A Noop recorder is
// used when metrics are disabled, so call sites never branch.
type Recorder interface {
	RecordRequest(ctx context.Context, scenario, status string, d time.Duration)
	RecordStep(ctx context.Context, step, status string, d time.Duration)
	RecordLLM(ctx context.Context, model string, d time.Duration, failed bool)
}

// Noop discards all measurements.
type Noop struct{}

func (Noop) RecordRequest(context.Context, string, string, time.Duration) {}
func (Noop) RecordStep(context.Context, string, string, time.Duration)    {}
func (Noop) RecordLLM(context.Context, string, time.Duration, bool)       {}

// Metrics is the Prometheus-backed Recorder.
type Metrics struct {
	requests        metric.Int64Counter
	requestDuration metric.Float64Histogram
	stepDuration    metric.Float64Histogram
	stepErrors      metric.Int64Counter
	llmDuration     metric.Float64Histogram
}

// InitMetrics builds the meter provider and instruments. The returned
// Metrics satisfies Recorder; serve Handler() to expose /metrics.
func InitMetrics() (*Metrics, error) {
	exporter, err := otelprom.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter("finsight")

	m := &Metrics{}

	if m.requests, err = meter.Int64Counter(
		"finsight_requests_total",
		metric.WithDescription("Total analysis requests"),
	); err != nil {
		return nil, err
	}
	if m.requestDuration, err = meter.Float64Histogram(
		"finsight_request_duration_seconds",
		metric.WithDescription("Analysis request duration in seconds"),
	); err != nil {
		return nil, err
	}
	if m.stepDuration, err = meter.Float64Histogram(
		"finsight_step_duration_seconds",
		metric.WithDescription("Pipeline step duration in seconds"),
	); err != nil {
		return nil, err
	}
	if m.stepErrors, err = meter.Int64Counter(
		"finsight_step_errors_total",
		metric.WithDescription("Pipeline step errors"),
	); err != nil {
		return nil, err
	}
	if m.llmDuration, err = meter.Float64Histogram(
		"finsight_llm_request_duration_seconds",
		metric.WithDescription("LLM request duration in seconds"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func (m *Metrics) RecordRequest(ctx context.Context, scenario, status string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("scenario", scenario),
		attribute.String("status", status),
	)
	m.requests.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, d.Seconds(), attrs)
}

func (m *Metrics) RecordStep(ctx context.Context, step, status string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("step", step),
		attribute.String("status", status),
	)
	m.stepDuration.Record(ctx, d.Seconds(), attrs)
	if status == "error" {
		m.stepErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("step", step)))
	}
}

func (m *Metrics) RecordLLM(ctx context.Context, model string, d time.Duration, failed bool) {
	m.llmDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("model", model),
		attribute.Bool("failed", failed),
	))
}
