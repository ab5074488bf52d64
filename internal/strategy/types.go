// Package strategy implements the search strategies: Direct,
// Iterative Decomposition (and its adaptive variant), Iterative Reasoning,
// Source-Based, and the Smart Router that classifies a query and dispatches
// to one of the others.
package strategy

import (
	"context"
	"strings"

	"deepresearch/internal/citation"
	"deepresearch/internal/findings"
	"deepresearch/internal/llmprovider"
	"deepresearch/internal/relevance"
	"deepresearch/internal/searchengine"
)

// ProgressFunc reports strategy progress: a human-readable message, percent
// complete in [0,1], and a free-form detail payload. All strategies publish
// progress through an injected callback of this shape.
type ProgressFunc func(message string, percent float64, detail map[string]any)

// NoopProgress discards every progress update.
func NoopProgress(string, float64, map[string]any) {}

// CandidateAnswer is one hypothesis the iterative-reasoning strategy is
// tracking, with a monotonically-managed confidence.
type CandidateAnswer struct {
	Answer     string
	Confidence float64
}

// KnowledgeState is the iterative-reasoning strategy's running belief.
// Mutated only by that strategy.
type KnowledgeState struct {
	KeyFacts         []string
	CandidateAnswers []CandidateAnswer
	Uncertainties    []string
	SearchHistory    []string
	Iteration        int
	Confidence       float64
}

// BestCandidate returns the highest-confidence candidate, or a zero value
// and false if none have been recorded yet.
func (k KnowledgeState) BestCandidate() (CandidateAnswer, bool) {
	if len(k.CandidateAnswers) == 0 {
		return CandidateAnswer{}, false
	}
	best := k.CandidateAnswers[0]
	for _, c := range k.CandidateAnswers[1:] {
		if c.Confidence > best.Confidence {
			best = c
		}
	}
	return best, true
}

// Result is what every strategy's AnalyzeTopic returns.
type Result struct {
	Findings              []findings.Finding
	Iterations            int
	QuestionsByIteration  [][]string
	FormattedFindings     string
	CurrentKnowledge      string
	AllLinks              []string
	Cancelled             bool
	KnowledgeState        *KnowledgeState // only populated by iterative-reasoning
}

// Strategy is the common interface every search strategy implements.
type Strategy interface {
	Name() string
	AnalyzeTopic(ctx context.Context, query string, rc searchengine.ResearchContext) (Result, error)
}

// EngineRunner is the subset of searchengine.Runner a strategy needs: run
// one query against one engine's full two-phase contract.
type EngineRunner interface {
	Run(ctx context.Context, q searchengine.Query) []searchengine.SearchResult
}

// Deps bundles the collaborators every strategy is built from, so
// constructors stay small and strategies stay swappable in tests.
type Deps struct {
	LLM           llmprovider.Invoker
	Engines       map[string]EngineRunner // engine name -> runner
	CrossFilter   *relevance.CrossEngineFilter
	Citations     *citation.Handler
	Progress      ProgressFunc
	WorkerPoolSize int
}

func (d Deps) withDefaults() Deps {
	if d.Progress == nil {
		d.Progress = NoopProgress
	}
	if d.WorkerPoolSize <= 0 {
		d.WorkerPoolSize = 4
	}
	if d.CrossFilter == nil {
		d.CrossFilter = relevance.NewCrossEngine(d.LLM)
	}
	if d.Citations == nil {
		d.Citations = citation.New(d.LLM)
	}
	return d
}

// runAllEngines issues q against every configured engine, optionally
// restricted to selector (a comma-separated engine name list, or "" /
// "all" for every engine), and returns the concatenated previews.
func runAllEngines(ctx context.Context, d Deps, q searchengine.Query, selector string) []searchengine.SearchResult {
	names := selectedEngines(d.Engines, selector)
	var all []searchengine.SearchResult
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		runner, ok := d.Engines[name]
		if !ok {
			continue
		}
		res := runner.Run(ctx, q)
		all = append(all, res...)
	}
	return all
}

func selectedEngines(engines map[string]EngineRunner, selector string) []string {
	if selector == "" || selector == "all" {
		out := make([]string, 0, len(engines))
		for name := range engines {
			out = append(out, name)
		}
		return out
	}
	var out []string
	for _, name := range strings.Split(selector, ",") {
		name = strings.TrimSpace(name)
		if _, ok := engines[name]; ok {
			out = append(out, name)
		}
	}
	return out
}
