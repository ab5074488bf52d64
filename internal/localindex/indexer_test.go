package localindex

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"deepresearch/internal/persistence/databases"
)

type fakeEmbedder struct{ calls int }

func (f *fakeEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(inputs))
	for i, s := range inputs {
		// Deterministic per-text vector so similarity search is exercisable.
		out[i] = []float32{float32(len(s)), 1, 0}
	}
	return out, nil
}

func newTestIndexer(t *testing.T, embedder Embedder) (*Indexer, string) {
	t.Helper()
	cacheDir := t.TempDir()
	meta, err := NewFileMetadataStore(cacheDir)
	require.NoError(t, err)
	stores := map[string]databases.VectorStore{}
	factory := func(ctx context.Context, hash string) (databases.VectorStore, error) {
		if s, ok := stores[hash]; ok {
			return s, nil
		}
		s := databases.NewMemoryVector()
		stores[hash] = s
		return s, nil
	}
	ix := NewIndexer(meta, embedder, factory)
	return ix, cacheDir
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	abs := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

func TestIndexFolder_ReindexWithoutChangesIsNoop(t *testing.T) {
	folder := t.TempDir()
	writeFile(t, folder, "a.txt", "hello world, this is file a")
	writeFile(t, folder, "b.txt", "hello world, this is file b")

	embedder := &fakeEmbedder{}
	ix, _ := newTestIndexer(t, embedder)
	col := Collection{Name: "c", Folders: []string{folder}, ChunkSize: 1000, ChunkOverlap: 0}

	require.NoError(t, ix.IndexFolder(context.Background(), col, folder, false))
	firstCalls := embedder.calls

	meta, err := ix.meta.Load()
	require.NoError(t, err)
	hash := FolderHash(folder)
	before := snapshotChunkIDs(meta.Folders[hash])

	require.NoError(t, ix.IndexFolder(context.Background(), col, folder, false))
	require.Equal(t, firstCalls, embedder.calls, "no new embedding calls on a no-op reindex")

	meta2, err := ix.meta.Load()
	require.NoError(t, err)
	after := snapshotChunkIDs(meta2.Folders[hash])
	require.Equal(t, before, after, "indexed_files must be byte-identical across a no-op reindex")
}

func TestIndexFolder_ModifiedFileGetsFreshChunkIDs(t *testing.T) {
	folder := t.TempDir()
	writeFile(t, folder, "a.txt", "original content for file a")
	writeFile(t, folder, "b.txt", "content for file b that never changes")

	embedder := &fakeEmbedder{}
	ix, _ := newTestIndexer(t, embedder)
	col := Collection{Name: "c", Folders: []string{folder}, ChunkSize: 1000, ChunkOverlap: 0}
	require.NoError(t, ix.IndexFolder(context.Background(), col, folder, false))

	meta, err := ix.meta.Load()
	require.NoError(t, err)
	hash := FolderHash(folder)
	oldA := append([]string{}, meta.Folders[hash].IndexedFiles["a.txt"].ChunkIDs...)
	oldB := append([]string{}, meta.Folders[hash].IndexedFiles["b.txt"].ChunkIDs...)

	// Ensure mtime actually advances past LastIndexed before editing.
	future := time.Now().Add(2 * time.Second)
	writeFile(t, folder, "a.txt", "substantially different content now")
	require.NoError(t, os.Chtimes(filepath.Join(folder, "a.txt"), future, future))

	require.NoError(t, ix.IndexFolder(context.Background(), col, folder, false))

	meta2, err := ix.meta.Load()
	require.NoError(t, err)
	newA := meta2.Folders[hash].IndexedFiles["a.txt"].ChunkIDs
	newB := meta2.Folders[hash].IndexedFiles["b.txt"].ChunkIDs

	require.NotEqual(t, oldA, newA, "modified file must get fresh chunk ids")
	require.Equal(t, oldB, newB, "untouched file's chunk ids must not change")
}

func TestIndexFolder_EmbeddingConfigChangeForcesFullRebuild(t *testing.T) {
	folder := t.TempDir()
	writeFile(t, folder, "a.txt", "some content to chunk and embed")

	embedder := &fakeEmbedder{}
	ix, _ := newTestIndexer(t, embedder)
	col := Collection{Name: "c", Folders: []string{folder}, ChunkSize: 1000, ChunkOverlap: 0, Embedding: EmbeddingConfig{Model: "model-a"}}
	require.NoError(t, ix.IndexFolder(context.Background(), col, folder, false))

	meta, err := ix.meta.Load()
	require.NoError(t, err)
	hash := FolderHash(folder)
	oldIDs := append([]string{}, meta.Folders[hash].IndexedFiles["a.txt"].ChunkIDs...)

	col.ChunkSize = 10 // config change invalidates the prior store
	require.NoError(t, ix.IndexFolder(context.Background(), col, folder, false))

	meta2, err := ix.meta.Load()
	require.NoError(t, err)
	newIDs := meta2.Folders[hash].IndexedFiles["a.txt"].ChunkIDs

	for _, id := range oldIDs {
		require.NotContains(t, newIDs, id, "old chunk ids must be absent after a config-change rebuild")
	}
}

func TestIndexFolder_DeletedFilePurgesChunks(t *testing.T) {
	folder := t.TempDir()
	writeFile(t, folder, "a.txt", "content a")
	writeFile(t, folder, "b.txt", "content b")

	embedder := &fakeEmbedder{}
	ix, _ := newTestIndexer(t, embedder)
	col := Collection{Name: "c", Folders: []string{folder}, ChunkSize: 1000, ChunkOverlap: 0}
	require.NoError(t, ix.IndexFolder(context.Background(), col, folder, false))

	require.NoError(t, os.Remove(filepath.Join(folder, "b.txt")))
	require.NoError(t, ix.IndexFolder(context.Background(), col, folder, false))

	meta, err := ix.meta.Load()
	require.NoError(t, err)
	hash := FolderHash(folder)
	_, stillThere := meta.Folders[hash].IndexedFiles["b.txt"]
	require.False(t, stillThere, "deleted file's entry must be purged")
}

func snapshotChunkIDs(fs *FolderState) map[string][]string {
	out := make(map[string][]string, len(fs.IndexedFiles))
	for rel, e := range fs.IndexedFiles {
		out[rel] = e.ChunkIDs
	}
	return out
}
