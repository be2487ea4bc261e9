package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresReader executes compiled SQL against a live Postgres warehouse,
// adapted from the teacher's core/db pool wrapper but stripped of the
// transactional CRUD helpers that package carried (this reader is
// read-only by construction — it never issues writes).
type PostgresReader struct {
	pool *pgxpool.Pool
}

// NewPostgresReader opens a connection pool and verifies connectivity.
func NewPostgresReader(ctx context.Context, dsn string) (*PostgresReader, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: parse postgres dsn: %w", err)
	}
	if poolCfg.MaxConns <= 0 {
		poolCfg.MaxConns = 10
	}
	if poolCfg.MinConns <= 0 {
		poolCfg.MinConns = 2
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("storage: create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping postgres: %w", err)
	}
	return &PostgresReader{pool: pool}, nil
}

// Query runs sql (built by the compiler) and materializes every row.
func (r *PostgresReader) Query(ctx context.Context, sql string) ([]Row, error) {
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("storage: query postgres: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("storage: scan postgres row: %w", err)
		}
		row := make(Row, len(fields))
		for i, fd := range fields {
			row[string(fd.Name)] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate postgres rows: %w", err)
	}
	return out, nil
}

func (r *PostgresReader) Close() {
	r.pool.Close()
}
