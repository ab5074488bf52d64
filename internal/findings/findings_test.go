package findings

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRepository_AddPreservesAppendOrder(t *testing.T) {
	r := New()
	r.Add(Finding{Phase: PhaseSearch, Content: "first"})
	r.Add(Finding{Phase: PhaseAnalysis, Content: "second"})

	all := r.All()
	require.Len(t, all, 2)
	require.Equal(t, "first", all[0].Content)
	require.Equal(t, "second", all[1].Content)
	require.Equal(t, 2, r.Len())
}

func TestRepository_AllReturnsASnapshotCopy(t *testing.T) {
	r := New()
	r.Add(Finding{Content: "one"})

	snap := r.All()
	snap[0].Content = "mutated"

	require.Equal(t, "one", r.All()[0].Content, "mutating a snapshot must not affect the repository")
}

func TestRepository_AddDocumentsDoesNotAffectFindingOrder(t *testing.T) {
	r := New()
	r.Add(Finding{Content: "a finding"})
	r.AddDocuments([]Document{{Source: "file.txt", Content: "doc body"}})
	r.Add(Finding{Content: "another finding"})

	require.Len(t, r.All(), 2)
	require.Len(t, r.Documents(), 1)
	require.Equal(t, "file.txt", r.Documents()[0].Source)
}

func TestRepository_AddDocumentsIgnoresEmptySlice(t *testing.T) {
	r := New()
	r.AddDocuments(nil)
	require.Empty(t, r.Documents())
}

func TestRepository_ConcurrentAddsAreSafe(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Add(Finding{Content: "x"})
		}()
	}
	wg.Wait()
	require.Equal(t, 50, r.Len())
}

func TestFormat_JoinsPhasesWithSeparatorAndAppendsCurrentKnowledge(t *testing.T) {
	fs := []Finding{
		{Phase: PhaseSearch, Question: "q1", Content: "result one"},
		{Phase: PhaseSynthesis, Content: "final answer"},
	}
	out := Format(fs, "the answer is 42")

	require.Contains(t, out, "## Search: q1")
	require.Contains(t, out, "result one")
	require.Contains(t, out, "---")
	require.Contains(t, out, "## Current Knowledge")
	require.Contains(t, out, "the answer is 42")
}

func TestFormat_OmitsCurrentKnowledgeSectionWhenEmpty(t *testing.T) {
	out := Format([]Finding{{Phase: PhaseAnalysis, Content: "c"}}, "")
	require.NotContains(t, out, "Current Knowledge")
}
