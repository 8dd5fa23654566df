package backend

import (
	"context"

	"saralfin/internal/store"
)

// Backend is a KV persistence backend the store writes through to.
type Backend interface {
	store.KV
	Close() error
}

// Pinger is implemented by backends that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and its cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Ping checks the backend if it supports it; in-process backends are always ready.
func (r *BackendResult) Ping(ctx context.Context) error {
	if p, ok := r.Backend.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// File backend
	DataFile string

	// SQLite backend
	SQLiteDBPath string

	// Postgres backend
	PostgresURL string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	FileBackend     BackendType = "file"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, FileBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
