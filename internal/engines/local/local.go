// Package local implements the local-index-backed engine adapter: vector
// similarity search over one or more named collections, filtered to valid
// indexed folders.
package local

import (
	"context"
	"strconv"
	"strings"

	"deepresearch/internal/localindex"
	"deepresearch/internal/searchengine"
)

// Engine wraps a localindex.Indexer behind the searchengine.Engine
// contract. Its previews already carry a strong similarity ranking, so the
// default Runner composition is built with a nil relevance filter.
type Engine struct {
	indexer    *localindex.Indexer
	folders    []string
	collection string
	threshold  float64
	maxResults int
}

// Config parameterizes one Local engine instance.
type Config struct {
	Folders    []string
	Collection string
	Threshold  float64
	MaxResults int
}

// New builds a Local engine over indexer, scoped to cfg.Folders.
func New(indexer *localindex.Indexer, cfg Config) *Engine {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	return &Engine{indexer: indexer, folders: cfg.Folders, collection: cfg.Collection, threshold: cfg.Threshold, maxResults: cfg.MaxResults}
}

func (e *Engine) Name() string            { return "local" }
func (e *Engine) RequiresAPIKey() bool     { return false }
func (e *Engine) RequiresLLM() bool        { return false }
func (e *Engine) SupportsFullSearch() bool { return true }

// GetPreviews runs the embedding similarity search and maps hits to the
// preview form. The trailing-underscore fields are carried via
// SearchResult.Extra so GetFullContent can avoid a second I/O pass.
func (e *Engine) GetPreviews(ctx context.Context, q searchengine.Query) ([]searchengine.SearchResult, error) {
	if e.indexer == nil || len(e.folders) == 0 {
		return nil, nil
	}

	hits, err := e.indexer.Search(ctx, localindex.SearchOptions{
		Query:      q.Text,
		Folders:    e.folders,
		Collection: e.collection,
		Limit:      e.maxResults,
		Threshold:  e.threshold,
	})
	if err != nil {
		return nil, searchengine.NewError(searchengine.ErrorKindIndex, "local index search failed", err)
	}

	out := make([]searchengine.SearchResult, 0, len(hits))
	for i, h := range hits {
		out = append(out, searchengine.SearchResult{
			ID:       h.ChunkID,
			Title:    titleFor(h),
			Link:     "local://" + h.Folder + "/" + h.Source,
			Snippet:  truncate(h.Text, 300),
			Source:   "local",
			Score:    h.Score,
			HasScore: true,
			Extra: map[string]any{
				"_full_content": h.Text,
				"_metadata": map[string]string{
					"folder":     h.Folder,
					"source":     h.Source,
					"filename":   h.Filename,
					"collection": h.Collection,
				},
				"_rank": strconv.Itoa(i),
			},
		})
	}
	return out, nil
}

// GetFullContent reads the _full_content extra field stashed by
// GetPreviews rather than re-reading the source file.
func (e *Engine) GetFullContent(ctx context.Context, previews []searchengine.SearchResult) ([]searchengine.SearchResult, error) {
	out := make([]searchengine.SearchResult, len(previews))
	for i, p := range previews {
		full := p
		if v, ok := p.Extra["_full_content"].(string); ok {
			full.Content = v
			full.FullContent = v
		} else {
			full.Content = p.Snippet
			full.FullContent = p.Snippet
		}
		out[i] = full
	}
	return out, nil
}

func titleFor(h localindex.Hit) string {
	if h.Filename != "" {
		return h.Filename
	}
	return h.Source
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n]) + "..."
}
