package observability

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// FromContext returns the global logger enriched with trace_id/span_id/
// trace_sampled fields pulled off ctx's active span, when one exists. Engine
// adapters and the orchestrator call this at the top of every request so a
// single trace's log lines can be joined without threading a logger through
// every function signature.
func FromContext(ctx context.Context) *zerolog.Logger {
	base := log.Logger
	if ctx == nil {
		return &base
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return &base
	}
	withCtx := base.With().Str("trace_id", sc.TraceID().String())
	if sc.HasSpanID() {
		withCtx = withCtx.Str("span_id", sc.SpanID().String())
	}
	if sc.IsSampled() {
		withCtx = withCtx.Bool("trace_sampled", true)
	}
	enriched := withCtx.Logger()
	return &enriched
}

