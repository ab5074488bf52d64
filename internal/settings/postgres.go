package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresProvider stores settings in a single dotted-key table, mirroring
// the isolation pattern internal/persistence/databases uses for vectors: one
// table, narrow SQL, no ORM.
type PostgresProvider struct {
	pool *pgxpool.Pool
}

// NewPostgresProvider opens (creating if absent) the settings table on
// pool.
func NewPostgresProvider(ctx context.Context, pool *pgxpool.Pool) (*PostgresProvider, error) {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS settings (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
`)
	if err != nil {
		return nil, fmt.Errorf("create settings table: %w", err)
	}
	return &PostgresProvider{pool: pool}, nil
}

func (p *PostgresProvider) Get(ctx context.Context, key, fallback string) (string, error) {
	var value string
	err := p.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		return fallback, nil
	}
	return value, nil
}

func (p *PostgresProvider) Set(ctx context.Context, key, value string) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO settings(key, value) VALUES($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
`, key, value)
	return err
}

func (p *PostgresProvider) All(ctx context.Context, prefix string) (map[string]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT key, value FROM settings WHERE key LIKE $1`, strings.ReplaceAll(prefix, "%", "")+"%")
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting row: %w", err)
		}
		out[key] = value
	}
	return out, rows.Err()
}
