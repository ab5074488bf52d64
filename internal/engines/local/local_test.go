package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"deepresearch/internal/localindex"
	"deepresearch/internal/persistence/databases"
	"deepresearch/internal/searchengine"
)

// hashEmbedder maps each input to a vector derived from which keyword it
// contains, so similarity search has a deterministic, checkable outcome.
type hashEmbedder struct{}

func (hashEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, s := range inputs {
		out[i] = keywordVector(s)
	}
	return out, nil
}

func keywordVector(s string) []float32 {
	s = strings.ToLower(s)
	return []float32{
		boolF(strings.Contains(s, "apple")),
		boolF(strings.Contains(s, "banana")),
	}
}

func boolF(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

func newIndexedEngine(t *testing.T) *Engine {
	t.Helper()
	folder := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(folder, "a.txt"), []byte("all about apple orchards"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "b.txt"), []byte("all about banana farms"), 0o644))

	meta, err := localindex.NewFileMetadataStore(t.TempDir())
	require.NoError(t, err)
	store := databases.NewMemoryVector()
	factory := func(ctx context.Context, hash string) (databases.VectorStore, error) { return store, nil }
	ix := localindex.NewIndexer(meta, hashEmbedder{}, factory)

	col := localindex.Collection{Name: "fruit", Folders: []string{folder}, ChunkSize: 1000, ChunkOverlap: 0}
	require.NoError(t, ix.IndexFolder(context.Background(), col, folder, false))

	return New(ix, Config{Folders: []string{folder}, Collection: "fruit", MaxResults: 5})
}

func TestEngine_GetPreviewsRanksBySimilarity(t *testing.T) {
	e := newIndexedEngine(t)
	out, err := e.GetPreviews(context.Background(), searchengine.Query{Text: "apple"})
	require.NoError(t, err)
	require.NotEmpty(t, out)
	require.Contains(t, out[0].Link, "a.txt")
	require.True(t, out[0].HasScore)
}

func TestEngine_GetPreviewsEmptyWithoutFolders(t *testing.T) {
	e := New(nil, Config{})
	out, err := e.GetPreviews(context.Background(), searchengine.Query{Text: "apple"})
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestEngine_GetFullContentReadsStashedText(t *testing.T) {
	e := newIndexedEngine(t)
	previews, err := e.GetPreviews(context.Background(), searchengine.Query{Text: "banana"})
	require.NoError(t, err)
	require.NotEmpty(t, previews)

	full, err := e.GetFullContent(context.Background(), previews)
	require.NoError(t, err)
	require.Equal(t, previews[0].Extra["_full_content"], full[0].Content)
}

func TestEngine_NameAndCapabilities(t *testing.T) {
	e := New(nil, Config{})
	require.Equal(t, "local", e.Name())
	require.False(t, e.RequiresAPIKey())
	require.False(t, e.RequiresLLM())
	require.True(t, e.SupportsFullSearch())
}
