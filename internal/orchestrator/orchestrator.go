// Package orchestrator is the research engine's thin entry point: it validates context,
// wires a progress channel, picks a strategy (explicit name or the smart
// router), installs the metrics hook, and never lets a strategy panic or
// error escape past a structured result.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"deepresearch/internal/findings"
	"deepresearch/internal/observability"
	"deepresearch/internal/searchengine"
	"deepresearch/internal/strategy"
)

// ProgressEvent is one update published on the orchestrator's progress
// channel.
type ProgressEvent struct {
	ResearchID string
	Message    string
	Percent    float64
	Detail     map[string]any
}

// ProgressPublisher receives every progress event a research run emits.
// internal/orchestrator/eventbus provides a Kafka-backed implementation;
// the default is an in-process channel.
type ProgressPublisher interface {
	Publish(ProgressEvent)
}

// ChannelPublisher fans progress events out over a buffered channel. The
// caller is responsible for draining Events; a full channel drops the
// event rather than blocking the research run.
type ChannelPublisher struct {
	Events chan ProgressEvent
}

// NewChannelPublisher creates a ChannelPublisher with the given buffer
// size.
func NewChannelPublisher(buffer int) *ChannelPublisher {
	if buffer <= 0 {
		buffer = 64
	}
	return &ChannelPublisher{Events: make(chan ProgressEvent, buffer)}
}

func (p *ChannelPublisher) Publish(ev ProgressEvent) {
	select {
	case p.Events <- ev:
	default:
	}
}

// Result is the structured outcome of one research run, returned no matter
// how the underlying strategy failed.
type Result struct {
	ResearchID           string
	Query                string
	Strategy             string
	Findings             []findings.Finding
	Iterations           int
	QuestionsByIteration [][]string
	FormattedFindings    string
	CurrentKnowledge     string
	AllLinks             []string
	Cancelled            bool
}

// StrategyFactory builds every named strategy this orchestrator can
// dispatch to, including "router" for the smart router.
type StrategyFactory func(deps strategy.Deps) map[string]strategy.Strategy

// DefaultStrategyFactory wires the five standard strategies plus the
// router, sharing one Deps value across all of them.
func DefaultStrategyFactory(deps strategy.Deps) map[string]strategy.Strategy {
	return map[string]strategy.Strategy{
		"direct":                        strategy.NewDirect(deps),
		"iterative-decomposition":       strategy.NewDecomposition(deps),
		"iterative-decomposition-adaptive": strategy.NewAdaptiveDecomposition(deps),
		"iterative-reasoning":           strategy.NewReasoning(deps),
		"source-based":                  strategy.NewSourceBased(deps),
		"router":                        strategy.NewRouter(deps),
		"adaptive":                      strategy.NewRouter(deps),
	}
}

// Orchestrator is the research entry point.
type Orchestrator struct {
	Deps      strategy.Deps
	Factory   StrategyFactory
	Publisher ProgressPublisher
	Sink      searchengine.MetricsSink
}

// New builds an Orchestrator. A nil publisher means progress events are
// discarded; a nil sink means no metrics are recorded beyond what each
// engine Runner records on its own.
func New(deps strategy.Deps, publisher ProgressPublisher, sink searchengine.MetricsSink) *Orchestrator {
	if sink == nil {
		sink = searchengine.NoopSink{}
	}
	return &Orchestrator{
		Deps:      deps,
		Factory:   DefaultStrategyFactory,
		Publisher: publisher,
		Sink:      sink,
	}
}

// Research runs query under rc, dispatching to rc.Strategy if set or the
// smart router otherwise. It never returns an error: any strategy failure,
// including a panic, is folded into Result as an Error-phase finding.
func (o *Orchestrator) Research(ctx context.Context, query string, rc searchengine.ResearchContext) Result {
	if rc.ResearchID == "" {
		rc.ResearchID = uuid.NewString()
	}

	logger := observability.FromContext(ctx)
	logger.Info().Str("research_id", rc.ResearchID).Str("strategy", rc.Strategy).Msg("research run starting")

	deps := o.Deps
	deps.Progress = o.progressFunc(rc.ResearchID, o.Deps.Progress)

	strategies := o.Factory(deps)
	name := rc.Strategy
	if name == "" {
		name = "router"
	}
	strat, ok := strategies[name]
	if !ok {
		strat = strategies["router"]
		name = "router"
	}

	start := time.Now()
	res, err := o.runStrategy(ctx, strat, query, rc)

	// One run-level row next to the per-search rows each engine records.
	row := searchengine.MetricsRow{
		Engine:      "research",
		Query:       query,
		ResultCount: len(res.Findings),
		LatencyMS:   time.Since(start).Milliseconds(),
		Success:     err == nil,
		ResearchID:  rc.ResearchID,
		RecordedAt:  time.Now(),
	}
	if err != nil {
		row.Error = err.Error()
	}
	o.Sink.Record(row)

	if err != nil {
		logger.Error().Err(err).Str("research_id", rc.ResearchID).Msg("strategy failed")
		f := findings.Finding{Phase: findings.PhaseError, Question: query, Content: "Error: " + err.Error()}
		return Result{
			ResearchID:        rc.ResearchID,
			Query:             query,
			Strategy:          name,
			Findings:          []findings.Finding{f},
			FormattedFindings: findings.Format([]findings.Finding{f}, ""),
			CurrentKnowledge:  "Error: " + err.Error(),
		}
	}

	return Result{
		ResearchID:           rc.ResearchID,
		Query:                query,
		Strategy:             name,
		Findings:             res.Findings,
		Iterations:           res.Iterations,
		QuestionsByIteration: res.QuestionsByIteration,
		FormattedFindings:    res.FormattedFindings,
		CurrentKnowledge:     res.CurrentKnowledge,
		AllLinks:             res.AllLinks,
		Cancelled:            res.Cancelled,
	}
}

// runStrategy invokes strat.AnalyzeTopic, recovering a panic into an error
// so a defective strategy implementation can never take the whole research
// run down with it.
func (o *Orchestrator) runStrategy(ctx context.Context, strat strategy.Strategy, query string, rc searchengine.ResearchContext) (result strategy.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy %q panicked: %v", strat.Name(), r)
		}
	}()
	return strat.AnalyzeTopic(ctx, query, rc)
}

func (o *Orchestrator) progressFunc(researchID string, inner strategy.ProgressFunc) strategy.ProgressFunc {
	return func(message string, percent float64, detail map[string]any) {
		if inner != nil {
			inner(message, percent, detail)
		}
		if o.Publisher != nil {
			o.Publisher.Publish(ProgressEvent{ResearchID: researchID, Message: message, Percent: percent, Detail: detail})
		}
	}
}
