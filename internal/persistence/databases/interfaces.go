// Package databases provides pluggable storage backends shared across the
// research engine's stateful components (the local embedding index, the rate
// limit tracker, the settings provider).
package databases

import "context"

// VectorResult represents a single nearest neighbor lookup result. Score is
// similarity, not distance: higher is always closer regardless of backend or
// metric.
type VectorResult struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

// VectorStore is the minimum interface a local index collection needs from
// its embedding backend. Implementations must be safe for concurrent use.
type VectorStore interface {
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error
	Delete(ctx context.Context, id string) error
	SimilaritySearch(ctx context.Context, vector []float32, k int, filter map[string]string) ([]VectorResult, error)
	Count(ctx context.Context) (int, error)
}
