package localindex

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"deepresearch/internal/embedclient"
	"deepresearch/internal/persistence/databases"
	"deepresearch/internal/textsplitters"
)

// Embedder turns a batch of chunk texts into vectors, in order.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// VectorStoreFactory resolves the VectorStore backing one folder's index.
type VectorStoreFactory func(ctx context.Context, folderHash string) (databases.VectorStore, error)

// Indexer owns the metadata document and the per-folder vector store cache.
// There is one in-memory cache per process; per-folder stores are guarded
// by a read-write lock so concurrent searches are safe while a reindex
// rebuilds.
type Indexer struct {
	meta     MetadataStore
	embedder Embedder
	stores   VectorStoreFactory

	mu    sync.RWMutex
	cache map[string]databases.VectorStore // folder_hash -> store, lazily loaded

	now func() time.Time
}

// NewIndexer builds an Indexer. embedder and stores must be non-nil.
func NewIndexer(meta MetadataStore, embedder Embedder, stores VectorStoreFactory) *Indexer {
	return &Indexer{
		meta:     meta,
		embedder: embedder,
		stores:   stores,
		cache:    make(map[string]databases.VectorStore),
		now:      time.Now,
	}
}

// EmbedderFromClient adapts an embedclient.Client to the Embedder interface.
func EmbedderFromClient(c *embedclient.Client) Embedder { return embedderAdapter{c} }

type embedderAdapter struct{ c *embedclient.Client }

func (a embedderAdapter) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	return a.c.Embed(ctx, inputs)
}

// IndexFolder runs the full index lifecycle for one folder under the given
// embedding/chunk configuration. forceReindex treats every file as modified
// regardless of mtime.
func (ix *Indexer) IndexFolder(ctx context.Context, col Collection, folderPath string, forceReindex bool) error {
	col = col.withDefaults()
	hash := FolderHash(folderPath)

	meta, err := ix.meta.Load()
	if err != nil {
		return fmt.Errorf("load index metadata: %w", err)
	}

	state, existed := meta.Folders[hash]
	configChanged := existed && (state.ChunkSize != col.ChunkSize || state.ChunkOverlap != col.ChunkOverlap || state.EmbeddingModel != col.Embedding.Model)
	if !existed {
		state = &FolderState{Path: folderPath, IndexedFiles: make(map[string]FileEntry)}
		meta.Folders[hash] = state
	}

	store, err := ix.storeFor(ctx, hash)
	if err != nil {
		return fmt.Errorf("resolve vector store: %w", err)
	}

	// Embedding-config change invalidates the prior store: vectors are
	// incomparable across models, so a partial rebuild is not allowed.
	if configChanged {
		log.Warn().Str("folder", folderPath).Msg("localindex: embedding config changed, forcing full rebuild")
		for rel, entry := range state.IndexedFiles {
			for _, id := range entry.ChunkIDs {
				_ = store.Delete(ctx, id)
			}
			delete(state.IndexedFiles, rel)
		}
		forceReindex = true
	}

	liveFiles, err := walkFolder(folderPath)
	if err != nil {
		return fmt.Errorf("walk folder: %w", err)
	}

	workSet := make(map[string]os.FileInfo)
	for rel, info := range liveFiles {
		if forceReindex {
			workSet[rel] = info
			continue
		}
		_, known := state.IndexedFiles[rel]
		if !known || info.ModTime().After(state.LastIndexed) {
			workSet[rel] = info
		}
	}

	for rel := range workSet {
		abs := filepath.Join(folderPath, rel)
		if old, ok := state.IndexedFiles[rel]; ok {
			for _, id := range old.ChunkIDs {
				if err := store.Delete(ctx, id); err != nil {
					log.Warn().Err(err).Str("chunk", id).Msg("localindex: failed to delete stale chunk")
				}
			}
		}

		loader := loaderFor(filepath.Ext(abs))
		text, err := loader(abs)
		if err != nil {
			log.Warn().Err(err).Str("file", abs).Msg("localindex: loader failed, skipping")
			continue
		}

		splitter, err := splitterForPath(abs, col)
		if err != nil {
			log.Warn().Err(err).Str("file", abs).Msg("localindex: failed to build splitter, skipping")
			continue
		}

		pieces := splitter.Split(text)
		if len(pieces) == 0 {
			continue
		}

		vectors, err := ix.embedder.Embed(ctx, pieces)
		if err != nil {
			log.Warn().Err(err).Str("file", abs).Msg("localindex: embedding failed, skipping file")
			continue
		}

		ids := make([]string, 0, len(pieces))
		for i, piece := range pieces {
			id := uuid.NewString()
			md := map[string]string{
				"source":   rel,
				"filename": filenameOf(abs),
				"folder":   folderPath,
			}
			if err := store.Upsert(ctx, id, vectors[i], withText(md, piece)); err != nil {
				log.Warn().Err(err).Str("chunk", id).Msg("localindex: upsert failed")
				continue
			}
			ids = append(ids, id)
		}
		state.IndexedFiles[rel] = FileEntry{ChunkIDs: ids, IndexedAt: ix.now()}
	}

	// Diff indexed_files against the live tree; purge chunks for files that
	// no longer exist.
	for rel, entry := range state.IndexedFiles {
		if _, stillLive := liveFiles[rel]; stillLive {
			continue
		}
		for _, id := range entry.ChunkIDs {
			if err := store.Delete(ctx, id); err != nil {
				log.Warn().Err(err).Str("chunk", id).Msg("localindex: failed to delete orphaned chunk")
			}
		}
		delete(state.IndexedFiles, rel)
	}

	state.Path = folderPath
	state.ChunkSize = col.ChunkSize
	state.ChunkOverlap = col.ChunkOverlap
	state.EmbeddingModel = col.Embedding.Model
	state.LastIndexed = ix.now()

	if err := ix.meta.Save(meta); err != nil {
		return fmt.Errorf("save index metadata: %w", err)
	}
	return nil
}

func (ix *Indexer) storeFor(ctx context.Context, folderHash string) (databases.VectorStore, error) {
	ix.mu.RLock()
	store, ok := ix.cache[folderHash]
	ix.mu.RUnlock()
	if ok {
		return store, nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if store, ok := ix.cache[folderHash]; ok {
		return store, nil
	}
	store, err := ix.stores(ctx, folderHash)
	if err != nil {
		return nil, err
	}
	ix.cache[folderHash] = store
	return store, nil
}

func withText(md map[string]string, text string) map[string]string {
	md["text"] = text
	return md
}

// codeExtensions maps recognized source extensions to the language hint
// textsplitters.CodeConfig uses to pick block-start patterns.
var codeExtensions = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".mjs":  "javascript",
}

// splitterForPath picks a chunking strategy by file extension: markdown
// files get heading-aware splitting, recognized source files get
// function/type-boundary splitting, .txt, .csv and extensionless files get
// the fixed-length splitter, and everything else gets the recursive
// heading/paragraph/sentence splitter with a fixed-length fallback. All strategies share col's chunk_size/chunk_overlap as their
// target size and overlap.
func splitterForPath(path string, col Collection) (textsplitters.Splitter, error) {
	size, overlap := col.ChunkSize, col.ChunkOverlap
	within := textsplitters.BoundaryConfig{Unit: textsplitters.UnitChars, Size: size, Overlap: overlap}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".md" || ext == ".markdown":
		return textsplitters.NewFromConfig(textsplitters.Config{
			Kind:     textsplitters.KindMarkdown,
			Markdown: textsplitters.MarkdownConfig{Within: within},
		})
	case codeExtensions[ext] != "":
		return textsplitters.NewFromConfig(textsplitters.Config{
			Kind: textsplitters.KindCode,
			Code: textsplitters.CodeConfig{Language: codeExtensions[ext], Within: within},
		})
	case ext == ".txt" || ext == ".csv" || ext == "":
		return textsplitters.NewFromConfig(textsplitters.Config{
			Kind:  textsplitters.KindFixed,
			Fixed: textsplitters.FixedConfig{Unit: textsplitters.UnitChars, Size: size, Overlap: overlap},
		})
	default:
		return textsplitters.NewFromConfig(textsplitters.Config{
			Kind: textsplitters.KindRecursive,
			Recursive: textsplitters.RecursiveConfig{
				Markdown:   textsplitters.MarkdownConfig{Within: within},
				Paragraphs: within,
				Sentences:  within,
				Fallback:   textsplitters.FixedConfig{Unit: textsplitters.UnitChars, Size: size, Overlap: overlap},
			},
		})
	}
}

// walkFolder returns every non-hidden regular file under root, keyed by
// folder-relative path using forward-slash separators.
func walkFolder(root string) (map[string]os.FileInfo, error) {
	out := make(map[string]os.FileInfo)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		name := d.Name()
		if isHidden(name) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = info
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
