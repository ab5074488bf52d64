package searchengine

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Engine is the capability set every adapter implements: a cheap preview
// phase, an expensive full-content phase, and a composed Run. Adapters live
// in their own packages, registered via a name -> constructor map in
// internal/engines.
type Engine interface {
	Name() string
	RequiresAPIKey() bool
	RequiresLLM() bool
	SupportsFullSearch() bool

	GetPreviews(ctx context.Context, q Query) ([]SearchResult, error)
	GetFullContent(ctx context.Context, previews []SearchResult) ([]SearchResult, error)
}

// RelevanceFilter is the subset of internal/relevance an engine's default
// Run composition needs. Engines whose previews already carry strong
// ranking (local index, retriever) may pass a filter that no-ops.
type RelevanceFilter interface {
	FilterForRelevance(ctx context.Context, previews []SearchResult, query string) ([]SearchResult, error)
}

// ContentFilter runs after full-content retrieval, e.g. snippets-only mode
// substitution or per-engine post-processing. A nil slice of filters means
// full results pass through unchanged.
type ContentFilter func(ctx context.Context, results []SearchResult) ([]SearchResult, error)

// Runner composes an Engine's default Run: previews -> relevance filter ->
// full content -> content filters, wrapped by the Tracker-driven retry loop.
// Max 3 attempts; only RateLimited errors retry.
type Runner struct {
	Engine    Engine
	Tracker   Tracker
	Filter    RelevanceFilter
	Sink      MetricsSink
	Filters   []ContentFilter
	SnippetsOnly func() bool // nil means false

	PreviewTimeout     time.Duration
	FullContentTimeout time.Duration
}

const maxRunAttempts = 3

// NewRunner returns a Runner with the default timeouts (15s preview, 30s
// full content) and a no-op metrics sink.
func NewRunner(engine Engine, tracker Tracker, filter RelevanceFilter) *Runner {
	return &Runner{
		Engine:             engine,
		Tracker:            tracker,
		Filter:             filter,
		Sink:               NoopSink{},
		PreviewTimeout:     15 * time.Second,
		FullContentTimeout: 30 * time.Second,
	}
}

// Run executes the engine's default composition, retrying on RateLimited up
// to three attempts total. Non-rate-limit failures surface as an empty
// result and a recorded metric, never a retry.
func (r *Runner) Run(ctx context.Context, q Query) []SearchResult {
	start := time.Now()
	var (
		results []SearchResult
		lastErr error
		success bool
	)

	for attempt := 0; attempt < maxRunAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = NewError(ErrorKindCancellation, "context cancelled", err)
			break
		}

		wait := r.Tracker.GetWaitTime(r.Engine.Name())
		sleep(ctx, time.Duration(wait*float64(time.Second)))
		if err := ctx.Err(); err != nil {
			lastErr = NewError(ErrorKindCancellation, "context cancelled", err)
			break
		}

		res, err := r.runOnce(ctx, q)
		attemptSucceeded := err == nil
		r.Tracker.RecordOutcome(ctx, r.Engine.Name(), wait, attemptSucceeded, attempt+1, kindTag(err), countPtr(res))

		if err == nil {
			results = res
			success = true
			break
		}
		lastErr = err
		if !IsRetryable(err) {
			break
		}
	}

	latency := time.Since(start)
	row := MetricsRow{
		Engine:      r.Engine.Name(),
		Query:       q.Text,
		ResultCount: len(results),
		LatencyMS:   latency.Milliseconds(),
		Success:     success,
		ResearchID:  q.Context.ResearchID,
		RecordedAt:  time.Now(),
	}
	if lastErr != nil {
		row.Error = lastErr.Error()
	}
	r.Sink.Record(row)

	if !success {
		log.Warn().Str("engine", r.Engine.Name()).Err(lastErr).Msg("engine run failed")
		return nil
	}
	return results
}

func (r *Runner) runOnce(ctx context.Context, q Query) ([]SearchResult, error) {
	pctx, cancel := context.WithTimeout(ctx, r.previewTimeout())
	defer cancel()
	previews, err := r.Engine.GetPreviews(pctx, q)
	if err != nil {
		return nil, err
	}
	if len(previews) == 0 {
		return nil, nil
	}

	if r.Filter != nil {
		filtered, err := r.Filter.FilterForRelevance(ctx, previews, q.Text)
		if err != nil {
			// LLMError: filter falls back to identity per the error model.
			log.Warn().Err(err).Str("engine", r.Engine.Name()).Msg("relevance filter failed, using unfiltered previews")
		} else {
			previews = filtered
		}
	}

	if r.SnippetsOnly != nil && r.SnippetsOnly() {
		return previews, nil
	}
	if !r.Engine.SupportsFullSearch() {
		return previews, nil
	}

	fctx, cancel2 := context.WithTimeout(ctx, r.fullContentTimeout())
	defer cancel2()
	full, err := r.Engine.GetFullContent(fctx, previews)
	if err != nil {
		// Timeout / transport failures on the content phase degrade to
		// previews rather than failing the whole run.
		log.Warn().Err(err).Str("engine", r.Engine.Name()).Msg("full content retrieval failed, using previews")
		return previews, nil
	}

	for _, f := range r.Filters {
		full, err = f(ctx, full)
		if err != nil {
			return nil, err
		}
	}
	return full, nil
}

func (r *Runner) previewTimeout() time.Duration {
	if r.PreviewTimeout <= 0 {
		return 15 * time.Second
	}
	return r.PreviewTimeout
}

func (r *Runner) fullContentTimeout() time.Duration {
	if r.FullContentTimeout <= 0 {
		return 30 * time.Second
	}
	return r.FullContentTimeout
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func kindTag(err error) string {
	if err == nil {
		return ""
	}
	return KindOf(err).String()
}

func countPtr(res []SearchResult) *int {
	n := len(res)
	return &n
}
