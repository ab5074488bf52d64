package metricssink

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"deepresearch/internal/searchengine"
)

// PostgresSink persists every engine run row so run history survives the
// process, mirroring internal/persistence/databases' single-table, narrow
// SQL style.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink opens (creating if absent) the metrics table on pool.
func NewPostgresSink(ctx context.Context, pool *pgxpool.Pool) (*PostgresSink, error) {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS engine_run_metrics (
  id BIGSERIAL PRIMARY KEY,
  engine TEXT NOT NULL,
  query TEXT NOT NULL,
  result_count INT NOT NULL,
  latency_ms BIGINT NOT NULL,
  success BOOLEAN NOT NULL,
  error TEXT NOT NULL DEFAULT '',
  research_id TEXT NOT NULL,
  recorded_at TIMESTAMPTZ NOT NULL
);
`)
	if err != nil {
		return nil, fmt.Errorf("create engine_run_metrics table: %w", err)
	}
	return &PostgresSink{pool: pool}, nil
}

// Record inserts row. Record must not block the caller meaningfully per
// the MetricsSink contract, so failures are logged, not returned.
func (s *PostgresSink) Record(row searchengine.MetricsRow) {
	_, err := s.pool.Exec(context.Background(), `
INSERT INTO engine_run_metrics(engine, query, result_count, latency_ms, success, error, research_id, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, row.Engine, row.Query, row.ResultCount, row.LatencyMS, row.Success, row.Error, row.ResearchID, row.RecordedAt)
	if err != nil {
		log.Error().Err(err).Str("engine", row.Engine).Msg("metricssink: record engine run")
	}
}
