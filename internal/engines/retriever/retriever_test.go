package retriever

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"deepresearch/internal/searchengine"
)

type fakeRetriever struct {
	docs []Document
	err  error
}

func (f fakeRetriever) Retrieve(ctx context.Context, query string) ([]Document, error) {
	return f.docs, f.err
}

func TestEngine_GetPreviewsMapsDocumentsAndAssignsFallbackID(t *testing.T) {
	e := New("corpus", fakeRetriever{docs: []Document{
		{Title: "with id", ID: "doc-1", Content: "body one"},
		{Title: "without id", Content: "body two"},
	}})

	out, err := e.GetPreviews(context.Background(), searchengine.Query{Text: "q"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "doc-1", out[0].ID)
	require.Equal(t, "corpus-1", out[1].ID)
	require.Equal(t, "corpus", out[0].Source)
}

func TestEngine_GetPreviewsWithoutRetrieverReturnsConfigError(t *testing.T) {
	e := New("corpus", nil)
	_, err := e.GetPreviews(context.Background(), searchengine.Query{Text: "q"})
	require.Error(t, err)
}

func TestEngine_GetPreviewsPropagatesRetrieveError(t *testing.T) {
	e := New("corpus", fakeRetriever{err: context.DeadlineExceeded})
	_, err := e.GetPreviews(context.Background(), searchengine.Query{Text: "q"})
	require.Error(t, err)
}

func TestEngine_GetFullContentRestoresUntruncatedContent(t *testing.T) {
	long := make([]byte, 400)
	for i := range long {
		long[i] = 'x'
	}
	e := New("corpus", fakeRetriever{docs: []Document{{ID: "1", Content: string(long)}}})

	previews, err := e.GetPreviews(context.Background(), searchengine.Query{Text: "q"})
	require.NoError(t, err)
	require.Less(t, len(previews[0].Snippet), len(long))

	full, err := e.GetFullContent(context.Background(), previews)
	require.NoError(t, err)
	require.Equal(t, string(long), full[0].Content)
}

func TestRegistry_RegisterGetAndNames(t *testing.T) {
	r := NewRegistry()
	r.Register("corpus", fakeRetriever{})
	e, ok := r.Get("corpus")
	require.True(t, ok)
	require.Equal(t, "corpus", e.Name())
	require.Equal(t, []string{"corpus"}, r.Names())

	_, ok = r.Get("missing")
	require.False(t, ok)
}

func TestRegistry_RegisteringSameNameOverwrites(t *testing.T) {
	r := NewRegistry()
	r.Register("corpus", fakeRetriever{docs: []Document{{ID: "old"}}})
	r.Register("corpus", fakeRetriever{docs: []Document{{ID: "new"}}})

	e, _ := r.Get("corpus")
	out, _ := e.GetPreviews(context.Background(), searchengine.Query{Text: "q"})
	require.Equal(t, "new", out[0].ID)
}
