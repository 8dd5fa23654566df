// Package sqlite stores key-value pairs in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type KV struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and applies migrations.
func New(dbPath string) (*KV, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite serialises writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("SQLite storage ready", "path", dbPath)
	return &KV{db: db}, nil
}

func (k *KV) Close() error {
	if k.db != nil {
		return k.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (k *KV) Ping(ctx context.Context) error {
	return k.db.PingContext(ctx)
}

// Get implements store.KV
func (k *KV) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	var value string
	err := k.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return json.RawMessage(value), true, nil
}

// Set implements store.KV
func (k *KV) Set(ctx context.Context, key string, value json.RawMessage) error {
	_, err := k.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value))
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
