package databases

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	poolMaxConns        = 8
	poolMinConns        = 0
	poolMaxConnLifetime = time.Hour
	poolMaxConnIdleTime = 5 * time.Minute
	poolPingTimeout     = 3 * time.Second
)

// OpenPool parses dsn, applies this module's pool-sizing defaults, and
// verifies connectivity with a bounded ping before returning. NewVectorStore
// (for "postgres"/"pgvector"/"auto" backends), the rate-limit tracker's
// Postgres store, and the metrics/settings Postgres sinks all obtain their
// pool through this single path so a bad DSN fails fast at startup rather
// than on the first query.
func OpenPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = poolMaxConns
	cfg.MinConns = poolMinConns
	cfg.MaxConnLifetime = poolMaxConnLifetime
	cfg.MaxConnIdleTime = poolMaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, poolPingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
