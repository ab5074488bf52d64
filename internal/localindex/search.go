package localindex

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"
)

// SearchOptions parameterizes one similarity-search invocation.
type SearchOptions struct {
	Query      string
	Folders    []string // one or more collection-scoped folder paths
	Collection string
	Limit      int
	Threshold  float64 // minimum similarity to keep, 0 disables filtering
}

// Search runs similarity search over one or more folders' indexes, merges
// hits, sorts by similarity descending, and truncates to Limit. Invalid
// (never-indexed) folder paths are dropped with a warning rather than
// failing the whole search.
func (ix *Indexer) Search(ctx context.Context, opts SearchOptions) ([]Hit, error) {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}

	vector, err := ix.embedder.Embed(ctx, []string{opts.Query})
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, nil
	}
	queryVec := vector[0]

	meta, err := ix.meta.Load()
	if err != nil {
		return nil, err
	}

	var all []Hit
	for _, folder := range opts.Folders {
		hash := FolderHash(folder)
		if _, ok := meta.Folders[hash]; !ok {
			log.Warn().Str("folder", folder).Msg("localindex: search over an un-indexed folder, skipping")
			continue
		}

		store, err := ix.storeFor(ctx, hash)
		if err != nil {
			log.Warn().Err(err).Str("folder", folder).Msg("localindex: could not load folder's vector store, skipping")
			continue
		}

		results, err := store.SimilaritySearch(ctx, queryVec, opts.Limit, nil)
		if err != nil {
			log.Warn().Err(err).Str("folder", folder).Msg("localindex: similarity search failed, skipping folder")
			continue
		}

		for _, r := range results {
			if opts.Threshold > 0 && r.Score < opts.Threshold {
				continue
			}
			all = append(all, Hit{
				ChunkID:    r.ID,
				Score:      r.Score,
				Text:       r.Metadata["text"],
				Source:     r.Metadata["source"],
				Filename:   r.Metadata["filename"],
				Folder:     folder,
				Collection: opts.Collection,
			})
		}
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Score > all[j].Score })
	if len(all) > opts.Limit {
		all = all[:opts.Limit]
	}
	return all, nil
}
