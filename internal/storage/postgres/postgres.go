// Package postgres stores key-value pairs in a PostgreSQL table through pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS saralfin_kv (
    key        TEXT PRIMARY KEY,
    value      JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type KV struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for url and makes sure the table exists.
func Connect(ctx context.Context, url string) (*KV, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	cfg.MaxConns = 5
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 2 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	return &KV{pool: pool}, nil
}

func (k *KV) Close() error {
	k.pool.Close()
	return nil
}

func (k *KV) Ping(ctx context.Context) error {
	return k.pool.Ping(ctx)
}

// Get implements store.KV
func (k *KV) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	var value []byte
	err := k.pool.QueryRow(ctx, `SELECT value::text FROM saralfin_kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return json.RawMessage(value), true, nil
}

// Set implements store.KV
func (k *KV) Set(ctx context.Context, key string, value json.RawMessage) error {
	_, err := k.pool.Exec(ctx, `
		INSERT INTO saralfin_kv (key, value, updated_at) VALUES ($1, $2::jsonb, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, string(value))
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
