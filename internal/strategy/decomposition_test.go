package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"deepresearch/internal/searchengine"
)

// scriptedInvoker returns one fixed response per call index, repeating the
// last entry once exhausted.
type scriptedInvoker struct {
	responses []string
	calls     int
}

func (s *scriptedInvoker) Invoke(ctx context.Context, prompt string) (string, error) {
	i := s.calls
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	s.calls++
	return s.responses[i], nil
}

func TestDecomposition_ConcludesOnConcludeAction(t *testing.T) {
	llm := &scriptedInvoker{responses: []string{
		`{"action":"propose_candidates","candidate":"Paris","confidence":0.9}`,
		`{"action":"conclude"}`,
	}}
	deps := Deps{LLM: llm, Engines: map[string]EngineRunner{}}
	s := NewDecomposition(deps)

	res, err := s.AnalyzeTopic(context.Background(), "capital of france", searchengine.ResearchContext{})
	require.NoError(t, err)
	require.Equal(t, 2, res.Iterations)
	require.Contains(t, res.CurrentKnowledge, "Paris")
}

func TestDecomposition_StopsOnRepeatedEmptyResultsSameShape(t *testing.T) {
	llm := &scriptedInvoker{responses: []string{
		`{"action":"verify_candidate","query":"same query"}`,
	}}
	deps := Deps{
		LLM:     llm,
		Engines: map[string]EngineRunner{"web": fakeRunner{results: nil}},
	}
	s := NewDecomposition(deps)

	res, err := s.AnalyzeTopic(context.Background(), "q", searchengine.ResearchContext{})
	require.NoError(t, err)
	require.Less(t, res.Iterations, decompositionMaxSteps, "must stop early once two consecutive empty-result steps share a query shape")
}

func TestDecomposition_NilLLMDefaultsToVerifyCandidateUntilBudgetExhausted(t *testing.T) {
	deps := Deps{Engines: map[string]EngineRunner{
		"web": fakeRunner{results: []searchengine.SearchResult{{Link: "http://a", Snippet: "s"}}},
	}}
	s := NewDecomposition(deps)

	res, err := s.AnalyzeTopic(context.Background(), "q", searchengine.ResearchContext{})
	require.NoError(t, err)
	require.Equal(t, decompositionMaxSteps, res.Iterations, "with nonempty results every step, the loop runs to the step budget")
}

func TestDecomposition_CancelledContextIsReportedAndStopsProgress(t *testing.T) {
	deps := Deps{Engines: map[string]EngineRunner{}}
	s := NewDecomposition(deps)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.AnalyzeTopic(ctx, "q", searchengine.ResearchContext{})
	require.NoError(t, err)
	require.True(t, res.Cancelled)
	require.Equal(t, 0, res.Iterations)
}

func TestNormalizeAnswer_CaseAndPunctuationInsensitive(t *testing.T) {
	require.Equal(t, normalizeAnswer("Paris, France!"), normalizeAnswer("paris france"))
	require.NotEqual(t, normalizeAnswer("Paris"), normalizeAnswer("London"))
}

func TestAdaptiveDecomposition_HasDoubledStepBudget(t *testing.T) {
	s := NewAdaptiveDecomposition(Deps{})
	require.Equal(t, decompositionMaxSteps*2, s.maxSteps)
	require.Equal(t, "iterative-decomposition-adaptive", s.Name())
}
