package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const kvSchema = `
CREATE TABLE IF NOT EXISTS claimflow_kv (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresBackend keeps every key as one JSONB row.
type PostgresBackend struct {
	Pool *pgxpool.Pool
}

// NewPostgresBackend connects with exponential backoff so the service can
// start before the database accepts connections.
func NewPostgresBackend(ctx context.Context, databaseURL string, maxWait time.Duration) (*PostgresBackend, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = maxWait

	var pool *pgxpool.Pool
	err = backoff.Retry(func() error {
		p, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	b := &PostgresBackend{Pool: pool}
	if err := b.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return b, nil
}

func (b *PostgresBackend) EnsureSchema(ctx context.Context) error {
	if _, err := b.Pool.Exec(ctx, kvSchema); err != nil {
		return fmt.Errorf("ensure kv schema: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var raw []byte
	err := b.Pool.QueryRow(ctx, `SELECT value FROM claimflow_kv WHERE key = $1`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return raw, nil
}

func (b *PostgresBackend) Put(ctx context.Context, key string, value []byte) error {
	_, err := b.Pool.Exec(ctx, `
		INSERT INTO claimflow_kv (key, value, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, key, string(value))
	return err
}

func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.Pool.Ping(ctx)
}

func (b *PostgresBackend) Close() {
	b.Pool.Close()
}
