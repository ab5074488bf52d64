package strategy

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"deepresearch/internal/findings"
	"deepresearch/internal/relevance"
	"deepresearch/internal/searchengine"
)

// SourceBased issues a set of sub-queries in parallel, bounded by a worker
// pool, accumulates results across engines, applies the cross-engine
// filter once, and runs a single synthesis. It applies no source-reputation
// weighting of its own.
type SourceBased struct {
	deps Deps

	// QuestionGen decomposes query into sub-queries. Defaults to a
	// single-LLM-call decomposition; tests may inject a fixed list.
	QuestionGen func(ctx context.Context, llmCall func(string) (string, error), query string, n int) ([]string, error)
}

// NewSourceBased builds a SourceBased strategy.
func NewSourceBased(deps Deps) *SourceBased {
	return &SourceBased{deps: deps.withDefaults(), QuestionGen: decomposeQuestions}
}

func (s *SourceBased) Name() string { return "source-based" }

func (s *SourceBased) AnalyzeTopic(ctx context.Context, query string, rc searchengine.ResearchContext) (Result, error) {
	n := rc.QuestionsPerIteration
	if n <= 0 {
		n = 3
	}

	s.deps.Progress("decomposing query", 0.1, map[string]any{"query": query})
	questions, err := s.genQuestions(ctx, query, n)
	if err != nil || len(questions) == 0 {
		questions = []string{query}
	}

	if ctx.Err() != nil {
		return Result{Cancelled: true}, nil
	}

	s.deps.Progress("searching sub-queries", 0.3, map[string]any{"count": len(questions)})
	allResults := s.fanOut(ctx, questions, rc)

	if ctx.Err() != nil {
		return Result{Cancelled: true, Iterations: 0, QuestionsByIteration: [][]string{questions}}, nil
	}

	allResults = relevance.Dedup(allResults)
	relevance.SortByScoreDescending(allResults)

	s.deps.Progress("filtering", 0.6, map[string]any{"result_count": len(allResults)})
	filtered := s.deps.CrossFilter.Filter(ctx, allResults, relevance.Options{
		Query:      query,
		MaxResults: maxResultsFor(rc),
		Reorder:    true,
		Reindex:    true,
	})

	s.deps.Progress("synthesizing", 0.85, nil)
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

	f := findings.Finding{Phase: findings.PhaseSynthesis, Question: query, Content: synthesis, SearchResults: stamped}
	fs := []findings.Finding{f}

	s.deps.Progress("done", 1.0, nil)
	return Result{
		Findings:             fs,
		Iterations:           1,
		QuestionsByIteration: [][]string{questions},
		FormattedFindings:    findings.Format(fs, synthesis),
		CurrentKnowledge:     synthesis,
		AllLinks:             linksOf(stamped),
	}, nil
}

func (s *SourceBased) genQuestions(ctx context.Context, query string, n int) ([]string, error) {
	call := func(prompt string) (string, error) {
		if s.deps.LLM == nil {
			return "", searchengine.NewError(searchengine.ErrorKindConfig, "no LLM configured", nil)
		}
		return s.deps.LLM.Invoke(ctx, prompt)
	}
	return s.QuestionGen(ctx, call, query, n)
}

// fanOut runs one searchengine.Query per question, bounded by a
// semaphore-limited worker pool (default size 4). A cancelled context drops
// in-flight results per the cooperative cancellation model.
func (s *SourceBased) fanOut(ctx context.Context, questions []string, rc searchengine.ResearchContext) []searchengine.SearchResult {
	sem := semaphore.NewWeighted(int64(s.deps.WorkerPoolSize))
	var mu sync.Mutex
	var wg sync.WaitGroup
	var all []searchengine.SearchResult

	for _, question := range questions {
		if ctx.Err() != nil {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(q string) {
			defer wg.Done()
			defer sem.Release(1)
			res := runAllEngines(ctx, s.deps, searchengine.Query{Text: q, Context: rc}, rc.EngineSelector)
			mu.Lock()
			all = append(all, res...)
			mu.Unlock()
		}(question)
	}
	wg.Wait()
	return all
}

// decomposeQuestions is the default QuestionGen: one LLM call asking for at
// most n sub-queries, one per line. An empty reply yields the original
// query; an LLM error is returned to the caller.
func decomposeQuestions(ctx context.Context, llmCall func(string) (string, error), query string, n int) ([]string, error) {
	prompt := buildDecompositionPrompt(query, n)
	text, err := llmCall(prompt)
	if err != nil {
		return nil, err
	}
	lines := splitNonEmptyLines(text)
	if len(lines) == 0 {
		return []string{query}, nil
	}
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines, nil
}
