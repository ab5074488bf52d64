package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"deepresearch/internal/searchengine"
)

func TestReasoning_StopsOnceConfidenceClearsThreshold(t *testing.T) {
	llm := &scriptedInvoker{responses: []string{
		`{"next_search_query":"q2","extracted_facts":["fact one"],"updated_candidates":[{"answer":"42","confidence":0.5}],"confidence":0.5}`,
		`{"next_search_query":"q3","extracted_facts":["fact two"],"updated_candidates":[{"answer":"42","confidence":0.95}],"confidence":0.95}`,
	}}
	deps := Deps{LLM: llm, Engines: map[string]EngineRunner{
		"web": fakeRunner{results: []searchengine.SearchResult{{Link: "http://a", Snippet: "s"}}},
	}}
	s := NewReasoning(deps)

	res, err := s.AnalyzeTopic(context.Background(), "what is the answer", searchengine.ResearchContext{})
	require.NoError(t, err)
	require.Equal(t, 2, res.Iterations)
	require.Contains(t, res.CurrentKnowledge, "42")
	require.NotNil(t, res.KnowledgeState)
	require.GreaterOrEqual(t, res.KnowledgeState.Confidence, reasoningMinConfidence)
}

func TestReasoning_RunsToIterationCapWithoutConvergence(t *testing.T) {
	llm := &scriptedInvoker{responses: []string{
		`{"updated_candidates":[{"answer":"guess","confidence":0.2}],"confidence":0.2}`,
	}}
	deps := Deps{LLM: llm, Engines: map[string]EngineRunner{
		"web": fakeRunner{results: []searchengine.SearchResult{{Link: "http://a", Snippet: "s"}}},
	}}
	s := NewReasoning(deps)

	res, err := s.AnalyzeTopic(context.Background(), "q", searchengine.ResearchContext{IterationCap: 3})
	require.NoError(t, err)
	require.Equal(t, 3, res.Iterations)
}

func TestReasoning_StopsAfterRepeatedEmptyResultsForSameQuery(t *testing.T) {
	llm := &scriptedInvoker{responses: []string{
		`{"updated_candidates":[{"answer":"guess","confidence":0.2}],"confidence":0.2}`,
	}}
	deps := Deps{LLM: llm, Engines: map[string]EngineRunner{
		"web": fakeRunner{}, // never returns results
	}}
	s := NewReasoning(deps)

	res, err := s.AnalyzeTopic(context.Background(), "q", searchengine.ResearchContext{IterationCap: 8})
	require.NoError(t, err)
	require.Less(t, res.Iterations, 8, "repeated empty results for the same query must stop the loop early")
}

func TestReasoning_CancelledMidLoopPreservesProgress(t *testing.T) {
	deps := Deps{Engines: map[string]EngineRunner{}}
	s := NewReasoning(deps)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.AnalyzeTopic(ctx, "q", searchengine.ResearchContext{})
	require.NoError(t, err)
	require.True(t, res.Cancelled)
}

func TestMergeCandidates_KeepsHigherConfidenceOnCollision(t *testing.T) {
	state := KnowledgeState{CandidateAnswers: []CandidateAnswer{{Answer: "Paris", Confidence: 0.4}}}
	mergeCandidates(&state, []reasoningAnswer{{Answer: "paris!", Confidence: 0.9}})
	require.Len(t, state.CandidateAnswers, 1)
	require.Equal(t, 0.9, state.CandidateAnswers[0].Confidence)
}

func TestMergeCandidates_NewAnswerIsAppended(t *testing.T) {
	state := KnowledgeState{}
	mergeCandidates(&state, []reasoningAnswer{{Answer: "London", Confidence: 0.6}})
	require.Len(t, state.CandidateAnswers, 1)
	require.Equal(t, "London", state.CandidateAnswers[0].Answer)
}
