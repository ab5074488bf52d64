package databases

import (
	"context"
	"fmt"
)

// VectorBackendConfig configures how a local index collection's embeddings
// are stored.
type VectorBackendConfig struct {
	// Backend selects the store: "memory" (default), "postgres"/"pgvector",
	// or "auto" (postgres if DSN resolves and is reachable, memory otherwise).
	Backend    string
	DSN        string
	Dimensions int
	Metric     string // cosine|l2|ip
}

// NewVectorStore resolves a VectorStore for collection according to cfg.
func NewVectorStore(ctx context.Context, collection string, cfg VectorBackendConfig) (VectorStore, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryVector(), nil
	case "auto":
		if cfg.DSN == "" {
			return NewMemoryVector(), nil
		}
		pool, err := OpenPool(ctx, cfg.DSN)
		if err != nil {
			return NewMemoryVector(), nil
		}
		return NewPostgresVector(ctx, pool, collection, cfg.Dimensions, cfg.Metric)
	case "postgres", "pgvector", "pg":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("vector backend %q requires a DSN", cfg.Backend)
		}
		pool, err := OpenPool(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres vector store: %w", err)
		}
		return NewPostgresVector(ctx, pool, collection, cfg.Dimensions, cfg.Metric)
	default:
		return nil, fmt.Errorf("unsupported vector backend: %s", cfg.Backend)
	}
}
