package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"deepresearch/internal/searchengine"
)

func TestSourceBased_FansOutOverMultipleQuestionsAndSynthesizes(t *testing.T) {
	deps := Deps{
		Engines: map[string]EngineRunner{
			"web": fakeRunner{results: []searchengine.SearchResult{
				{Link: "http://a", Snippet: "snippet a"},
			}},
		},
	}
	s := NewSourceBased(deps)
	s.QuestionGen = func(ctx context.Context, llmCall func(string) (string, error), query string, n int) ([]string, error) {
		return []string{"sub one", "sub two", "sub three"}, nil
	}

	res, err := s.AnalyzeTopic(context.Background(), "broad topic", searchengine.ResearchContext{QuestionsPerIteration: 3})
	require.NoError(t, err)
	require.Equal(t, 1, res.Iterations)
	require.Len(t, res.QuestionsByIteration, 1)
	require.Len(t, res.QuestionsByIteration[0], 3)
	require.NotEmpty(t, res.AllLinks)
}

func TestSourceBased_NilLLMFallsBackToOriginalQuery(t *testing.T) {
	deps := Deps{Engines: map[string]EngineRunner{}}
	s := NewSourceBased(deps)

	res, err := s.AnalyzeTopic(context.Background(), "q", searchengine.ResearchContext{})
	require.NoError(t, err)
	require.Equal(t, []string{"q"}, res.QuestionsByIteration[0])
}

func TestSourceBased_CancelledBeforeSearchReportsCancelled(t *testing.T) {
	deps := Deps{Engines: map[string]EngineRunner{}}
	s := NewSourceBased(deps)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.AnalyzeTopic(ctx, "q", searchengine.ResearchContext{})
	require.NoError(t, err)
	require.True(t, res.Cancelled)
}

func TestDecomposeQuestions_SplitsNumberedLinesAndCapsAtN(t *testing.T) {
	calls := 0
	call := func(prompt string) (string, error) {
		calls++
		return "one\ntwo\nthree\nfour", nil
	}
	qs, err := decomposeQuestions(context.Background(), call, "q", 2)
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Len(t, qs, 2)
}
