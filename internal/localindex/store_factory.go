package localindex

import (
	"context"

	"deepresearch/internal/persistence/databases"
)

// NewVectorStoreFactory adapts persistence/databases' backend-agnostic
// constructor into the VectorStoreFactory an Indexer needs, scoping each
// folder to its own collection namespace keyed by folder hash so the same
// Postgres table (or in-memory map) can back every folder.
func NewVectorStoreFactory(cfg databases.VectorBackendConfig) VectorStoreFactory {
	return func(ctx context.Context, folderHash string) (databases.VectorStore, error) {
		return databases.NewVectorStore(ctx, "localindex_"+folderHash, cfg)
	}
}
