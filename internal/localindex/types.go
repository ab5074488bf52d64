// Package localindex implements a file-walking, chunking,
// vector-store-backed document indexer organized into named Collections,
// plus the similarity-search operation the Local engine adapter sits on
// top of.
package localindex

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"time"
)

// EmbeddingConfig names the embedding model a Collection was built with.
// Changing Model invalidates the collection's prior vectors and forces a
// full rebuild, since vectors are incomparable across models. Dimensions is
// not part of that comparison.
type EmbeddingConfig struct {
	Model      string
	Dimensions int
}

// Collection is a named group of folder paths plus the embedding and
// chunking configuration used to index them.
type Collection struct {
	Name      string
	Folders   []string
	Embedding EmbeddingConfig
	ChunkSize    int
	ChunkOverlap int
}

func (c Collection) withDefaults() Collection {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 1000
	}
	if c.ChunkOverlap <= 0 {
		c.ChunkOverlap = 200
	}
	return c
}

// FileEntry tracks one indexed file's chunk ids and mtime-derived freshness.
type FileEntry struct {
	ChunkIDs []string
	// IndexedAt is when this file was last (re)chunked, used only for
	// diagnostics; freshness decisions use the live file's mtime vs
	// FolderState.LastIndexed.
	IndexedAt time.Time
}

// FolderState is the persisted metadata row for one indexed folder.
type FolderState struct {
	Path           string
	LastIndexed    time.Time
	ChunkSize      int
	ChunkOverlap   int
	EmbeddingModel string
	IndexedFiles   map[string]FileEntry // relpath -> entry
}

// Metadata is the full persisted `index_metadata` document: one FolderState
// per folder_hash, shared across collections that reference the same
// underlying folder.
type Metadata struct {
	Folders map[string]*FolderState // folder_hash -> state
}

// NewMetadata returns an empty Metadata document.
func NewMetadata() *Metadata {
	return &Metadata{Folders: make(map[string]*FolderState)}
}

// FolderHash computes the stable, path-canonicalized hash used to name a
// folder's on-disk artifact directory.
func FolderHash(path string) string {
	clean := filepath.Clean(path)
	clean = strings.ReplaceAll(clean, string(filepath.Separator), "/")
	sum := sha256.Sum256([]byte(clean))
	return hex.EncodeToString(sum[:])[:16]
}

// Chunk is one embeddable unit produced by the splitter for one source file.
type Chunk struct {
	ID       string
	Text     string
	Source   string // folder-relative path
	Filename string
}

// Hit is one similarity-search result, tagged with the collection/folder it
// came from.
type Hit struct {
	ChunkID     string
	Score       float64
	Text        string
	Source      string
	Filename    string
	Folder      string
	Collection  string
}
