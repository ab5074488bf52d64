package strategy

import (
	"context"

	"deepresearch/internal/findings"
	"deepresearch/internal/relevance"
	"deepresearch/internal/searchengine"
)

// Direct is the single-pass strategy: one search, one cross-engine filter,
// one citation synthesis. Used for entity/factoid queries. Iterations is
// always 1.
type Direct struct {
	deps Deps
}

// NewDirect builds a Direct strategy.
func NewDirect(deps Deps) *Direct {
	return &Direct{deps: deps.withDefaults()}
}

func (s *Direct) Name() string { return "direct" }

func (s *Direct) AnalyzeTopic(ctx context.Context, query string, rc searchengine.ResearchContext) (Result, error) {
	s.deps.Progress("searching", 0.1, map[string]any{"query": query})

	if err := ctx.Err(); err != nil {
		return Result{Cancelled: true}, nil
	}

	q := searchengine.Query{Text: query, Context: rc}
	raw := runAllEngines(ctx, s.deps, q, rc.EngineSelector)
	raw = relevance.Dedup(raw)
	relevance.SortByScoreDescending(raw)

	s.deps.Progress("filtering results", 0.5, map[string]any{"result_count": len(raw)})

	filtered := s.deps.CrossFilter.Filter(ctx, raw, relevance.Options{
		Query:      query,
		MaxResults: maxResultsFor(rc),
		StartIndex: 0,
		Reorder:    true,
		Reindex:    true,
	})

	if ctx.Err() != nil {
		return Result{Cancelled: true, Iterations: 0}, nil
	}

	s.deps.Progress("synthesizing answer", 0.8, nil)
	stamped, synthesis, err := s.deps.Citations.Synthesize(ctx, query, filtered)
	if err != nil {
		f := findings.Finding{Phase: findings.PhaseError, Question: query, Content: "Error: " + err.Error()}
		return Result{
			Findings:          []findings.Finding{f},
			Iterations:        1,
			FormattedFindings: findings.Format([]findings.Finding{f}, ""),
			CurrentKnowledge:  "Error: " + err.Error(),
			AllLinks:          linksOf(filtered),
		}, nil
	}

	f := findings.Finding{
		Phase:         findings.PhaseSynthesis,
		Question:      query,
		Content:       synthesis,
		SearchResults: stamped,
	}
	fs := []findings.Finding{f}

	s.deps.Progress("done", 1.0, nil)
	return Result{
		Findings:             fs,
		Iterations:           1,
		QuestionsByIteration: [][]string{{query}},
		FormattedFindings:    findings.Format(fs, synthesis),
		CurrentKnowledge:     synthesis,
		AllLinks:             linksOf(stamped),
	}, nil
}

func maxResultsFor(rc searchengine.ResearchContext) int {
	if rc.QuestionsPerIteration > 0 {
		return rc.QuestionsPerIteration * 5
	}
	return 10
}

func linksOf(results []searchengine.SearchResult) []string {
	out := make([]string, 0, len(results))
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		if r.Link == "" || seen[r.Link] {
			continue
		}
		seen[r.Link] = true
		out = append(out, r.Link)
	}
	return out
}
