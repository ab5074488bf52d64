package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"deepresearch/internal/findings"
	"deepresearch/internal/searchengine"
)

// Action is one of the fixed decomposition controller actions.
type Action string

const (
	ActionExtractConstraints Action = "extract_constraints"
	ActionProposeCandidates  Action = "propose_candidates"
	ActionVerifyCandidate    Action = "verify_candidate"
	ActionRefineQuery        Action = "refine_query"
	ActionConclude           Action = "conclude"
)

const (
	decompositionMinConfidence = 0.8
	decompositionMaxSteps      = 10
)

// decompositionState is the working knowledge object the controller
// mutates step by step.
type decompositionState struct {
	Constraints []string
	Candidates  []CandidateAnswer
	Verified    []string
	Confidence  float64
}

// decisionPayload is what the LLM is asked to emit at each step: the next
// action plus any action-specific fields. All fields are optional except
// Action; the controller fills in defaults when a field the chosen action
// needs is missing.
type decisionPayload struct {
	Action     string  `json:"action"`
	Query      string  `json:"query"`
	Constraint string  `json:"constraint"`
	Candidate  string  `json:"candidate"`
	Confidence float64 `json:"confidence"`
}

// Decomposition implements the iterative-decomposition strategy and its
// adaptive variant. Adaptive only changes the step budget; both variants
// conclude at the same fixed min-confidence threshold.
type Decomposition struct {
	deps        Deps
	adaptive    bool
	maxSteps    int
	minConfidence float64
}

// NewDecomposition builds the standard iterative-decomposition strategy.
func NewDecomposition(deps Deps) *Decomposition {
	return &Decomposition{deps: deps.withDefaults(), maxSteps: decompositionMaxSteps, minConfidence: decompositionMinConfidence}
}

// NewAdaptiveDecomposition builds the adaptive variant: twice the step
// budget, with the same fixed confidence threshold as the standard one.
func NewAdaptiveDecomposition(deps Deps) *Decomposition {
	return &Decomposition{deps: deps.withDefaults(), adaptive: true, maxSteps: decompositionMaxSteps * 2, minConfidence: decompositionMinConfidence}
}

func (s *Decomposition) Name() string {
	if s.adaptive {
		return "iterative-decomposition-adaptive"
	}
	return "iterative-decomposition"
}

func (s *Decomposition) AnalyzeTopic(ctx context.Context, query string, rc searchengine.ResearchContext) (Result, error) {
	state := decompositionState{}
	var fs []findings.Finding
	var questionsByIter [][]string
	var allLinks []string
	var lastQueryShape string
	emptyStreak := 0

	maxSteps := s.maxSteps
	if rc.IterationCap > 0 {
		maxSteps = rc.IterationCap
	}

	completed := 0
	for step := 0; step < maxSteps; step++ {
		if ctx.Err() != nil {
			return Result{
				Findings: fs, Iterations: completed, QuestionsByIteration: questionsByIter,
				FormattedFindings: findings.Format(fs, summarizeState(state)),
				CurrentKnowledge:  summarizeState(state), AllLinks: allLinks, Cancelled: true,
			}, nil
		}

		percent := float64(step) / float64(maxSteps)
		s.deps.Progress(fmt.Sprintf("decomposition step %d", step+1), percent, map[string]any{"confidence": state.Confidence})

		decision := s.decide(ctx, query, state)

		switch Action(decision.Action) {
		case ActionExtractConstraints:
			if decision.Constraint != "" {
				state.Constraints = append(state.Constraints, decision.Constraint)
			}
			fs = append(fs, findings.Finding{Phase: findings.PhaseAnalysis, Question: query, Content: "Extracted constraint: " + decision.Constraint})

		case ActionProposeCandidates:
			if decision.Candidate != "" {
				state.Candidates = append(state.Candidates, CandidateAnswer{Answer: decision.Candidate, Confidence: decision.Confidence})
			}
			fs = append(fs, findings.Finding{Phase: findings.PhaseAnalysis, Question: query, Content: "Proposed candidate: " + decision.Candidate})

		case ActionVerifyCandidate:
			q := decision.Query
			if q == "" {
				q = query
			}
			shape := queryShape(q)
			results := runAllEngines(ctx, s.deps, searchengine.Query{Text: q, Context: rc}, rc.EngineSelector)
			if len(results) == 0 && shape == lastQueryShape {
				emptyStreak++
			} else {
				emptyStreak = 0
			}
			lastQueryShape = shape
			questionsByIter = append(questionsByIter, []string{q})
			allLinks = append(allLinks, linksOf(results)...)

			if decision.Candidate != "" {
				updateCandidateConfidence(&state, decision.Candidate, decision.Confidence)
				if decision.Confidence >= s.minConfidence {
					state.Verified = append(state.Verified, decision.Candidate)
				}
			}
			state.Confidence = bestConfidence(state.Candidates)
			fs = append(fs, findings.Finding{Phase: findings.PhaseSearch, Question: q, Content: "Verified candidate against search results", SearchResults: results})

		case ActionRefineQuery:
			q := decision.Query
			if q == "" {
				q = query
			}
			query = q

		case ActionConclude:
			completed = step + 1
			fs = append(fs, findings.Finding{Phase: findings.PhaseSynthesis, Question: query, Content: "Concluded: " + summarizeState(state)})
			return s.finish(fs, completed, questionsByIter, allLinks, state, false)

		default:
			// Unknown action from a malformed LLM response; treat as a
			// no-op step rather than failing the run.
		}

		completed = step + 1

		if state.Confidence >= s.minConfidence {
			return s.finish(fs, completed, questionsByIter, allLinks, state, false)
		}
		if emptyStreak >= 2 {
			// Two consecutive empty result sets for the same query shape
			// means more steps would just spin; stop here.
			return s.finish(fs, completed, questionsByIter, allLinks, state, false)
		}
	}

	return s.finish(fs, completed, questionsByIter, allLinks, state, false)
}

func (s *Decomposition) finish(fs []findings.Finding, iterations int, questionsByIter [][]string, allLinks []string, state decompositionState, cancelled bool) (Result, error) {
	summary := summarizeState(state)
	return Result{
		Findings:             fs,
		Iterations:           iterations,
		QuestionsByIteration: questionsByIter,
		FormattedFindings:    findings.Format(fs, summary),
		CurrentKnowledge:     summary,
		AllLinks:             dedupStrings(allLinks),
		Cancelled:            cancelled,
	}, nil
}

// decide asks the LLM which action to take next given the current state.
// On any LLM or parse failure it defaults to ActionVerifyCandidate so the
// controller still makes forward progress via search.
func (s *Decomposition) decide(ctx context.Context, query string, state decompositionState) decisionPayload {
	if s.deps.LLM == nil {
		return decisionPayload{Action: string(ActionVerifyCandidate), Query: query}
	}
	prompt := buildDecisionPrompt(query, state)
	text, err := s.deps.LLM.Invoke(ctx, prompt)
	if err != nil {
		return decisionPayload{Action: string(ActionVerifyCandidate), Query: query}
	}
	payload, ok := parseDecision(text)
	if !ok {
		return decisionPayload{Action: string(ActionVerifyCandidate), Query: query}
	}
	return payload
}

func buildDecisionPrompt(query string, state decompositionState) string {
	var sb strings.Builder
	sb.WriteString("You are solving a research puzzle step by step. Choose exactly one next action from: ")
	sb.WriteString("extract_constraints, propose_candidates, verify_candidate, refine_query, conclude.\n")
	sb.WriteString("Respond with a single JSON object: {\"action\":...,\"query\":...,\"constraint\":...,\"candidate\":...,\"confidence\":...}\n\n")
	fmt.Fprintf(&sb, "Question: %s\n", query)
	fmt.Fprintf(&sb, "Known constraints: %v\n", state.Constraints)
	fmt.Fprintf(&sb, "Candidates so far: %v\n", state.Candidates)
	return sb.String()
}

func parseDecision(text string) (decisionPayload, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < 0 || end < start {
		return decisionPayload{}, false
	}
	var p decisionPayload
	if err := json.Unmarshal([]byte(text[start:end+1]), &p); err != nil {
		return decisionPayload{}, false
	}
	if p.Action == "" {
		return decisionPayload{}, false
	}
	return p, true
}

func updateCandidateConfidence(state *decompositionState, answer string, confidence float64) {
	key := normalizeAnswer(answer)
	for i, c := range state.Candidates {
		if normalizeAnswer(c.Answer) == key {
			if confidence > c.Confidence {
				state.Candidates[i].Confidence = confidence
			}
			return
		}
	}
	state.Candidates = append(state.Candidates, CandidateAnswer{Answer: answer, Confidence: confidence})
}

func bestConfidence(candidates []CandidateAnswer) float64 {
	best := 0.0
	for _, c := range candidates {
		if c.Confidence > best {
			best = c.Confidence
		}
	}
	return best
}

func summarizeState(state decompositionState) string {
	best, ok := bestCandidateOf(state.Candidates)
	if !ok {
		return "No confident answer yet."
	}
	if best.Confidence < decompositionMinConfidence {
		return fmt.Sprintf("Best candidate (confidence %.2f, below threshold): %s", best.Confidence, best.Answer)
	}
	return fmt.Sprintf("Answer (confidence %.2f): %s", best.Confidence, best.Answer)
}

func bestCandidateOf(candidates []CandidateAnswer) (CandidateAnswer, bool) {
	if len(candidates) == 0 {
		return CandidateAnswer{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Confidence > best.Confidence {
			best = c
		}
	}
	return best, true
}

// normalizeAnswer is the deterministic, case/punctuation-insensitive key
// used to dedup candidate answers.
func normalizeAnswer(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var sb strings.Builder
	prevSpace := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
			prevSpace = false
		case r == ' ' || r == '\t' || r == '\n':
			if !prevSpace {
				sb.WriteByte(' ')
				prevSpace = true
			}
		default:
			// punctuation dropped entirely
		}
	}
	return strings.TrimSpace(sb.String())
}

func dedupStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func queryShape(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}
