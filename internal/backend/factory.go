package backend

import (
	"context"
	"fmt"
	"log/slog"

	"saralfin/internal/storage/file"
	"saralfin/internal/storage/memory"
	"saralfin/internal/storage/postgres"
	"saralfin/internal/storage/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		b   Backend
		err error
	)
	switch config.Type {
	case MemoryBackend:
		b = memory.New()
		f.logger.Warn("Using in-memory backend, data is lost on restart")
	case FileBackend:
		b, err = file.New(config.DataFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open data file: %w", err)
		}
		f.logger.Info("Initialized file backend", "path", config.DataFile)
	case SQLiteBackend:
		b, err = sqlite.New(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite backend: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case PostgresBackend:
		b, err = postgres.Connect(ctx, config.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres backend: %w", err)
		}
		f.logger.Info("Initialized postgres backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	return &BackendResult{
		Backend: b,
		Cleanup: b.Close,
	}, nil
}
