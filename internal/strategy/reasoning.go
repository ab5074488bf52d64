package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"deepresearch/internal/findings"
	"deepresearch/internal/relevance"
	"deepresearch/internal/searchengine"
)

const (
	reasoningMinConfidence = 0.85
	reasoningMaxIterations = 8
)

// reasoningStep is the structured payload the LLM produces each iteration.
type reasoningStep struct {
	NextSearchQuery        string            `json:"next_search_query"`
	ExtractedFacts         []string          `json:"extracted_facts"`
	UpdatedCandidates      []reasoningAnswer `json:"updated_candidates"`
	RemainingUncertainties []string          `json:"remaining_uncertainties"`
	Confidence             float64           `json:"confidence"`
}

type reasoningAnswer struct {
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
}

// Reasoning implements the iterative-reasoning strategy: a
// KnowledgeState-driven loop where each round searches, extracts facts, and
// merges candidate answers until confidence clears the threshold or the
// iteration budget runs out.
type Reasoning struct {
	deps Deps
}

// NewReasoning builds an Reasoning strategy.
func NewReasoning(deps Deps) *Reasoning {
	return &Reasoning{deps: deps.withDefaults()}
}

func (s *Reasoning) Name() string { return "iterative-reasoning" }

func (s *Reasoning) AnalyzeTopic(ctx context.Context, query string, rc searchengine.ResearchContext) (Result, error) {
	state := KnowledgeState{}
	var fs []findings.Finding
	var questionsByIter [][]string
	var allLinks []string

	maxIterations := reasoningMaxIterations
	if rc.IterationCap > 0 {
		maxIterations = rc.IterationCap
	}

	nextQuery := query
	emptyStreak := 0
	lastShape := ""
	for state.Iteration = 0; state.Iteration < maxIterations; state.Iteration++ {
		if ctx.Err() != nil {
			return s.finish(fs, state, questionsByIter, allLinks, true), nil
		}

		percent := float64(state.Iteration) / float64(maxIterations)
		s.deps.Progress(fmt.Sprintf("reasoning iteration %d", state.Iteration+1), percent, map[string]any{"confidence": state.Confidence})

		q := nextQuery
		if q == "" {
			q = query
		}
		results := runAllEngines(ctx, s.deps, searchengine.Query{Text: q, Context: rc}, rc.EngineSelector)
		results = relevance.Dedup(results)
		relevance.SortByScoreDescending(results)

		shape := queryShape(q)
		if len(results) == 0 && shape == lastShape {
			emptyStreak++
		} else {
			emptyStreak = 0
		}
		lastShape = shape

		questionsByIter = append(questionsByIter, []string{q})
		allLinks = append(allLinks, linksOf(results)...)
		state.SearchHistory = append(state.SearchHistory, q)

		step := s.reason(ctx, query, state, results)

		state.KeyFacts = append(state.KeyFacts, step.ExtractedFacts...)
		state.Uncertainties = step.RemainingUncertainties
		mergeCandidates(&state, step.UpdatedCandidates)
		state.Confidence = step.Confidence
		if best, ok := state.BestCandidate(); ok && best.Confidence > state.Confidence {
			state.Confidence = best.Confidence
		}

		fs = append(fs, findings.Finding{
			Phase:         findings.PhaseSearch,
			Question:      q,
			Content:       strings.Join(step.ExtractedFacts, "\n"),
			SearchResults: results,
		})

		nextQuery = step.NextSearchQuery

		if state.Confidence >= reasoningMinConfidence {
			state.Iteration++
			break
		}
		if emptyStreak >= 2 {
			// Two consecutive empty result sets for the same query shape
			// means more iterations would just spin; stop here.
			state.Iteration++
			break
		}
	}

	return s.finish(fs, state, questionsByIter, allLinks, false), nil
}

func (s *Reasoning) finish(fs []findings.Finding, state KnowledgeState, questionsByIter [][]string, allLinks []string, cancelled bool) Result {
	summary := reasoningSummary(state)
	fs = append(fs, findings.Finding{Phase: findings.PhaseSynthesis, Content: summary})
	return Result{
		Findings:             fs,
		Iterations:           state.Iteration,
		QuestionsByIteration: questionsByIter,
		FormattedFindings:    findings.Format(fs, summary),
		CurrentKnowledge:     summary,
		AllLinks:             dedupStrings(allLinks),
		Cancelled:            cancelled,
		KnowledgeState:       &state,
	}
}

// reason asks the LLM to advance the knowledge state by one step. Any LLM
// or parse failure degrades to a step that reuses the current best
// candidate and keeps the current uncertainties rather than halting the loop.
func (s *Reasoning) reason(ctx context.Context, query string, state KnowledgeState, results []searchengine.SearchResult) reasoningStep {
	if s.deps.LLM == nil {
		return fallbackStep(state, results)
	}
	prompt := buildReasoningPrompt(query, state, results)
	text, err := s.deps.LLM.Invoke(ctx, prompt)
	if err != nil {
		return fallbackStep(state, results)
	}
	step, ok := parseReasoningStep(text)
	if !ok {
		return fallbackStep(state, results)
	}
	return step
}

func fallbackStep(state KnowledgeState, results []searchengine.SearchResult) reasoningStep {
	var facts []string
	for _, r := range results {
		if r.Snippet != "" {
			facts = append(facts, r.Snippet)
		}
	}
	best, _ := state.BestCandidate()
	return reasoningStep{
		ExtractedFacts:         facts,
		UpdatedCandidates:      []reasoningAnswer{{Answer: best.Answer, Confidence: best.Confidence}},
		RemainingUncertainties: state.Uncertainties,
		Confidence:             best.Confidence,
	}
}

func buildReasoningPrompt(query string, state KnowledgeState, results []searchengine.SearchResult) string {
	var sb strings.Builder
	sb.WriteString("You are researching iteratively. Given the question, current knowledge, and the latest ")
	sb.WriteString("search results, respond with a single JSON object with fields: next_search_query, ")
	sb.WriteString("extracted_facts (array), updated_candidates (array of {answer,confidence}), ")
	sb.WriteString("remaining_uncertainties (array), confidence (0 to 1 overall).\n\n")
	fmt.Fprintf(&sb, "Question: %s\n", query)
	fmt.Fprintf(&sb, "Known facts: %v\n", state.KeyFacts)
	fmt.Fprintf(&sb, "Current candidates: %v\n", state.CandidateAnswers)
	sb.WriteString("Latest results:\n")
	for _, r := range results {
		fmt.Fprintf(&sb, "- %s: %s\n", r.Title, r.Snippet)
	}
	return sb.String()
}

func parseReasoningStep(text string) (reasoningStep, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < 0 || end < start {
		return reasoningStep{}, false
	}
	var step reasoningStep
	if err := json.Unmarshal([]byte(text[start:end+1]), &step); err != nil {
		return reasoningStep{}, false
	}
	return step, true
}

// mergeCandidates folds updated into state.CandidateAnswers, deduping by
// normalized answer text and keeping the higher confidence on collision.
func mergeCandidates(state *KnowledgeState, updated []reasoningAnswer) {
	for _, u := range updated {
		if u.Answer == "" {
			continue
		}
		key := normalizeAnswer(u.Answer)
		merged := false
		for i, c := range state.CandidateAnswers {
			if normalizeAnswer(c.Answer) == key {
				if u.Confidence > c.Confidence {
					state.CandidateAnswers[i].Confidence = u.Confidence
				}
				merged = true
				break
			}
		}
		if !merged {
			state.CandidateAnswers = append(state.CandidateAnswers, CandidateAnswer{Answer: u.Answer, Confidence: u.Confidence})
		}
	}
}

func reasoningSummary(state KnowledgeState) string {
	best, ok := state.BestCandidate()
	if !ok {
		return "No confident answer yet."
	}
	return fmt.Sprintf("Answer (confidence %.2f): %s", best.Confidence, best.Answer)
}
