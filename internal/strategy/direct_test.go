package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"deepresearch/internal/searchengine"
)

type fakeRunner struct {
	results []searchengine.SearchResult
}

func (r fakeRunner) Run(ctx context.Context, q searchengine.Query) []searchengine.SearchResult {
	return r.results
}

func TestDirect_SingleIterationWithCitations(t *testing.T) {
	deps := Deps{
		Engines: map[string]EngineRunner{
			"web": fakeRunner{results: []searchengine.SearchResult{
				{ID: "a", Title: "A", Link: "http://a", Snippet: "snippet a", Score: 0.9, HasScore: true},
				{ID: "b", Title: "B", Link: "http://b", Snippet: "snippet b", Score: 0.5, HasScore: true},
			}},
		},
	}
	s := NewDirect(deps)
	res, err := s.AnalyzeTopic(context.Background(), "what is x", searchengine.ResearchContext{})
	require.NoError(t, err)
	require.Equal(t, 1, res.Iterations)
	require.False(t, res.Cancelled)
	require.Len(t, res.QuestionsByIteration, 1)
	require.NotEmpty(t, res.AllLinks)
	require.Contains(t, res.CurrentKnowledge, "snippet")
}

func TestDirect_CancelledContextShortCircuits(t *testing.T) {
	deps := Deps{Engines: map[string]EngineRunner{}}
	s := NewDirect(deps)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.AnalyzeTopic(ctx, "q", searchengine.ResearchContext{})
	require.NoError(t, err)
	require.True(t, res.Cancelled)
}

func TestDirect_SynthesisErrorBecomesErrorFinding(t *testing.T) {
	deps := Deps{
		Engines: map[string]EngineRunner{
			"web": fakeRunner{results: []searchengine.SearchResult{{ID: "a", Link: "http://a", Snippet: "s"}}},
		},
		LLM: errorInvoker{},
	}
	s := NewDirect(deps)
	res, err := s.AnalyzeTopic(context.Background(), "q", searchengine.ResearchContext{})
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	require.Contains(t, res.CurrentKnowledge, "Error:")
}

type errorInvoker struct{}

func (errorInvoker) Invoke(ctx context.Context, prompt string) (string, error) {
	return "", context.DeadlineExceeded
}
