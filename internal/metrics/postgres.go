package metrics

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kuzminvik/ragbench/internal/compare"
)

// PostgresSink appends comparison records to an append-only table,
// for deployments that want the history queryable instead of (or next
// to) a flat file.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink creates a connection pool, verifies it, and ensures
// the history table exists.
func NewPostgresSink(ctx context.Context, databaseURL string) (*PostgresSink, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresSink{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresSink) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS comparisons (
			id          UUID PRIMARY KEY,
			recorded_at TIMESTAMPTZ NOT NULL,
			record      JSONB NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create comparisons table: %w", err)
	}
	return nil
}

// Append inserts one record. Rows are never updated or deleted.
func (s *PostgresSink) Append(ctx context.Context, rec compare.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO comparisons (id, recorded_at, record) VALUES ($1, $2, $3)`,
		rec.ID, rec.Timestamp, payload,
	)
	if err != nil {
		return fmt.Errorf("inserting record: %w", err)
	}
	return nil
}

// List returns the history oldest first. When limit > 0 only the
// newest limit records are returned, still oldest first.
func (s *PostgresSink) List(ctx context.Context, limit int) ([]compare.Record, error) {
	query := `SELECT record FROM comparisons ORDER BY recorded_at ASC`
	args := []any{}
	if limit > 0 {
		query = `SELECT record FROM (
			SELECT record, recorded_at FROM comparisons
			ORDER BY recorded_at DESC LIMIT $1
		) latest ORDER BY recorded_at ASC`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var records []compare.Record
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var rec compare.Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decoding record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close releases the connection pool.
func (s *PostgresSink) Close() {
	s.pool.Close()
}

// Ensure PostgresSink implements Sink.
var _ Sink = (*PostgresSink)(nil)
