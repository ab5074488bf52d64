package ratelimit

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"deepresearch/internal/persistence/databases"
)

// postgresStore persists estimates and attempts so learned wait times survive
// restarts and are shared across orchestrator instances.
type postgresStore struct {
	pool *pgxpool.Pool
}

// NewStore returns a Postgres-backed Store if pool is non-nil, otherwise an
// in-memory Store. Mirrors the nil-pool-falls-back-to-memory convention used
// throughout this codebase's optional persistence layers.
func NewStore(pool *pgxpool.Pool) Store {
	if pool == nil {
		return NewMemoryStore()
	}
	return &postgresStore{pool: pool}
}

// OpenStore resolves the persistence backend from its configuration:
// Postgres when backend is "postgres" and a DSN is set, the in-memory store
// otherwise or when the database is unreachable. The returned func closes
// the pool and is a no-op for the in-memory store.
func OpenStore(ctx context.Context, backend, dsn string) (Store, func()) {
	if backend != "postgres" || dsn == "" {
		return NewMemoryStore(), func() {}
	}
	pool, err := databases.OpenPool(ctx, dsn)
	if err != nil {
		log.Warn().Err(err).Msg("rate limit store unreachable, using in-memory store")
		return NewMemoryStore(), func() {}
	}
	return NewStore(pool), pool.Close
}

// Init creates the backing tables if they don't already exist. Safe to call
// repeatedly.
func (s *postgresStore) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rate_limit_estimates (
    engine_type TEXT PRIMARY KEY,
    base_wait_seconds DOUBLE PRECISION NOT NULL,
    min_wait_seconds DOUBLE PRECISION NOT NULL,
    max_wait_seconds DOUBLE PRECISION NOT NULL,
    last_updated DOUBLE PRECISION NOT NULL,
    total_attempts INTEGER NOT NULL,
    success_rate DOUBLE PRECISION NOT NULL
);
CREATE TABLE IF NOT EXISTS rate_limit_attempts (
    id BIGSERIAL PRIMARY KEY,
    engine_type TEXT NOT NULL,
    timestamp DOUBLE PRECISION NOT NULL,
    wait_time DOUBLE PRECISION NOT NULL,
    retry_count INTEGER NOT NULL,
    success BOOLEAN NOT NULL,
    error_type TEXT,
    search_result_count INTEGER
);
CREATE INDEX IF NOT EXISTS idx_rate_limit_attempts_engine_ts
    ON rate_limit_attempts(engine_type, timestamp);
`)
	return err
}

func (s *postgresStore) LoadEstimates(ctx context.Context) ([]Estimate, error) {
	rows, err := s.pool.Query(ctx, `
SELECT engine_type, base_wait_seconds, min_wait_seconds, max_wait_seconds, last_updated, total_attempts, success_rate
FROM rate_limit_estimates
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Estimate
	for rows.Next() {
		var e Estimate
		if err := rows.Scan(&e.EngineType, &e.BaseWaitSeconds, &e.MinWaitSeconds, &e.MaxWaitSeconds, &e.LastUpdated, &e.TotalAttempts, &e.SuccessRate); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *postgresStore) UpsertEstimate(ctx context.Context, e Estimate) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO rate_limit_estimates (engine_type, base_wait_seconds, min_wait_seconds, max_wait_seconds, last_updated, total_attempts, success_rate)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (engine_type) DO UPDATE SET
    base_wait_seconds = EXCLUDED.base_wait_seconds,
    min_wait_seconds = EXCLUDED.min_wait_seconds,
    max_wait_seconds = EXCLUDED.max_wait_seconds,
    last_updated = EXCLUDED.last_updated,
    total_attempts = EXCLUDED.total_attempts,
    success_rate = EXCLUDED.success_rate
`, e.EngineType, e.BaseWaitSeconds, e.MinWaitSeconds, e.MaxWaitSeconds, e.LastUpdated, e.TotalAttempts, e.SuccessRate)
	return err
}

func (s *postgresStore) InsertAttempt(ctx context.Context, a Attempt) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO rate_limit_attempts (engine_type, timestamp, wait_time, retry_count, success, error_type, search_result_count)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, a.EngineType, a.Timestamp, a.WaitTime, a.RetryCount, a.Success, nullableString(a.ErrorType), a.SearchResultCount)
	return err
}

func (s *postgresStore) DeleteEngine(ctx context.Context, engineType string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM rate_limit_attempts WHERE engine_type=$1`, engineType); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM rate_limit_estimates WHERE engine_type=$1`, engineType)
	return err
}

func (s *postgresStore) DeleteAttemptsOlderThan(ctx context.Context, cutoffUnixSeconds float64) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM rate_limit_attempts WHERE timestamp < $1`, cutoffUnixSeconds)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
