package strategy

import (
	"context"
	"strings"

	"deepresearch/internal/findings"
	"deepresearch/internal/searchengine"
)

// QueryClass is the smart router's classification of an incoming query.
type QueryClass string

const (
	ClassFactoid  QueryClass = "factoid"
	ClassPuzzle   QueryClass = "puzzle"
	ClassCompound QueryClass = "compound"
	ClassResearch QueryClass = "research"
)

// Router classifies the incoming query via an LLM and dispatches to the
// matching strategy, re-dispatching at most once if the chosen strategy's
// confidence comes back below 0.3.
type Router struct {
	deps       Deps
	strategies map[QueryClass]Strategy
}

// NewRouter builds a Router wired to one strategy per query class. Any
// nil entry falls back to Direct so the router never dispatches to a
// missing strategy.
func NewRouter(deps Deps) *Router {
	deps = deps.withDefaults()
	direct := NewDirect(deps)
	r := &Router{
		deps: deps,
		strategies: map[QueryClass]Strategy{
			ClassFactoid:  direct,
			ClassPuzzle:   NewReasoning(deps),
			ClassCompound: NewDecomposition(deps),
			ClassResearch: NewSourceBased(deps),
		},
	}
	return r
}

func (r *Router) Name() string { return "router" }

func (r *Router) AnalyzeTopic(ctx context.Context, query string, rc searchengine.ResearchContext) (Result, error) {
	class := r.classify(ctx, query)
	strat := r.strategies[class]
	if strat == nil {
		strat = r.strategies[ClassFactoid]
	}

	r.deps.Progress("routed query", 0.05, map[string]any{"class": string(class), "strategy": strat.Name()})

	result, err := strat.AnalyzeTopic(ctx, query, rc)
	if err != nil || result.Cancelled {
		return result, err
	}

	if resultConfidence(result) < 0.3 {
		// Re-dispatch at most once: fall through to Source-Based as the
		// broadest-coverage fallback unless that is exactly what already ran.
		fallback := r.strategies[ClassResearch]
		if fallback != nil && fallback != strat {
			r.deps.Progress("re-dispatching (low confidence)", 0.1, map[string]any{"previous_strategy": strat.Name()})
			return fallback.AnalyzeTopic(ctx, query, rc)
		}
	}

	return result, nil
}

// classify asks the LLM to pick one of the four query classes. Any LLM or
// parse failure defaults to research, the most general strategy.
func (r *Router) classify(ctx context.Context, query string) QueryClass {
	if r.deps.LLM == nil {
		return ClassResearch
	}
	prompt := buildClassificationPrompt(query)
	text, err := r.deps.LLM.Invoke(ctx, prompt)
	if err != nil {
		return ClassResearch
	}
	return parseClass(text)
}

func buildClassificationPrompt(query string) string {
	return "Classify the following question as exactly one word: factoid, puzzle, compound, or research.\n" +
		"factoid: a single fact lookup. puzzle: a riddle with several chained constraints to satisfy. " +
		"compound: several distinct sub-questions bundled together. research: an open-ended topic needing " +
		"broad synthesis.\n\nQuestion: " + query + "\n"
}

func parseClass(text string) QueryClass {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "factoid"):
		return ClassFactoid
	case strings.Contains(t, "puzzle"):
		return ClassPuzzle
	case strings.Contains(t, "compound"):
		return ClassCompound
	case strings.Contains(t, "research"):
		return ClassResearch
	default:
		return ClassResearch
	}
}

// resultConfidence extracts the confidence value a strategy result
// implies: the KnowledgeState's if present, else the best candidate
// confidence a decomposition-style result leaves no trace of, in which
// case a present, non-error finding is treated as full confidence.
func resultConfidence(result Result) float64 {
	if result.KnowledgeState != nil {
		return result.KnowledgeState.Confidence
	}
	for _, f := range result.Findings {
		if f.Phase == findings.PhaseError {
			return 0
		}
	}
	if len(result.Findings) == 0 {
		return 0
	}
	return 1
}
