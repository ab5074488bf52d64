package databases

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// pgVector is a pgvector-backed VectorStore. Rows are scoped by collection so a
// single table can back many local indexes.
type pgVector struct {
	pool       *pgxpool.Pool
	collection string
	dimensions int
	metric     string // cosine|l2|ip
}

// NewPostgresVector returns a VectorStore backed by a pgvector-enabled Postgres
// pool. Rows for collection are isolated from every other collection sharing
// the pool.
func NewPostgresVector(ctx context.Context, pool *pgxpool.Pool, collection string, dimensions int, metric string) (VectorStore, error) {
	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return nil, fmt.Errorf("create vector extension: %w", err)
	}
	vecType := "vector"
	if dimensions > 0 {
		vecType = fmt.Sprintf("vector(%d)", dimensions)
	}
	_, err := pool.Exec(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS local_index_embeddings (
  collection TEXT NOT NULL,
  id TEXT NOT NULL,
  vec %s,
  metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
  PRIMARY KEY (collection, id)
);
`, vecType))
	if err != nil {
		return nil, fmt.Errorf("create embeddings table: %w", err)
	}
	return &pgVector{
		pool:       pool,
		collection: collection,
		dimensions: dimensions,
		metric:     strings.ToLower(strings.TrimSpace(metric)),
	}, nil
}

func (p *pgVector) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO local_index_embeddings(collection, id, vec, metadata) VALUES($1, $2, $3, $4)
ON CONFLICT (collection, id) DO UPDATE SET vec=EXCLUDED.vec, metadata=EXCLUDED.metadata
`, p.collection, id, pgvector.NewVector(vector), metadata)
	return err
}

func (p *pgVector) Delete(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM local_index_embeddings WHERE collection=$1 AND id=$2`, p.collection, id)
	return err
}

func (p *pgVector) Count(ctx context.Context) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx, `SELECT count(*) FROM local_index_embeddings WHERE collection=$1`, p.collection).Scan(&n)
	return n, err
}

func (p *pgVector) SimilaritySearch(ctx context.Context, vector []float32, k int, filter map[string]string) ([]VectorResult, error) {
	if k <= 0 {
		k = 10
	}
	qv := pgvector.NewVector(vector)
	op := "<=>"
	scoreExpr := "1 - (vec <=> $2)"
	switch p.metric {
	case "l2", "euclidean":
		op = "<->"
		scoreExpr = "-(vec <-> $2)"
	case "ip", "dot":
		op = "<#>"
		scoreExpr = "-(vec <#> $2)"
	}
	args := []any{p.collection, qv, k}
	where := "WHERE collection=$1"
	if len(filter) > 0 {
		where += " AND metadata @> $4"
		args = append(args, filter)
	}
	query := fmt.Sprintf(`SELECT id, %s AS score, metadata FROM local_index_embeddings %s ORDER BY vec %s $2 LIMIT $3`, scoreExpr, where, op)
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]VectorResult, 0, k)
	for rows.Next() {
		var r VectorResult
		var md map[string]string
		if err := rows.Scan(&r.ID, &r.Score, &md); err != nil {
			return nil, err
		}
		r.Metadata = md
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the underlying pool. Safe to call even when the pool is
// shared; callers that share a pool across stores should not call Close on
// individual stores.
func (p *pgVector) Close() { p.pool.Close() }
