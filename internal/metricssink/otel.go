// Package metricssink provides concrete searchengine.MetricsSink
// implementations: an OpenTelemetry-backed sink, a Postgres-backed
// option for querying run history later, and an in-memory sink for tests.
package metricssink

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"deepresearch/internal/searchengine"
)

// OtelSink records one counter (run count) and one histogram (latency) per
// engine Run, with outcome and engine name as attributes.
type OtelSink struct {
	meter metric.Meter

	mu        sync.RWMutex
	runs      metric.Int64Counter
	latencies metric.Float64Histogram
}

// NewOtelSink builds an OtelSink using the global MeterProvider.
func NewOtelSink() *OtelSink {
	meter := otel.Meter("deepresearch.searchengine")
	runs, _ := meter.Int64Counter("searchengine_runs_total")
	latencies, _ := meter.Float64Histogram("searchengine_run_latency_ms")
	return &OtelSink{meter: meter, runs: runs, latencies: latencies}
}

func (s *OtelSink) Record(row searchengine.MetricsRow) {
	if s == nil || s.runs == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("engine", row.Engine),
		attribute.Bool("success", row.Success),
	}
	if row.Error != "" {
		attrs = append(attrs, attribute.String("error_kind", row.Error))
	}
	ctx := context.Background()
	s.runs.Add(ctx, 1, metric.WithAttributes(attrs...))
	if s.latencies != nil {
		s.latencies.Record(ctx, float64(row.LatencyMS), metric.WithAttributes(attrs...))
	}
}
