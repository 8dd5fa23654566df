// Package cli holds the start-up steps shared by cmd/saralfin,
// cmd/saralfin-worker and cmd/saralfin-report.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"saralfin/internal/backend"
	"saralfin/internal/config"
	"saralfin/internal/core"
	applog "saralfin/internal/log"
	"saralfin/internal/store"
)

// SetupLogger installs a text logger at info level as the slog default.
// The level is raised or lowered once configuration is loaded.
func SetupLogger(component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: component,
	})
	applog.SetDefault(logger)
	return logger
}

// ApplyLogLevel rebuilds the default logger with the configured level.
func ApplyLogLevel(cfg *config.Config, component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     cfg.SlogLevel(),
		Component: component,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenStore creates the configured backend and loads the store from it.
// Exits the process when the backend cannot be opened.
func OpenStore(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*store.Store, *backend.BackendResult) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", bcfg.Type)
		os.Exit(1)
	}

	var opts []store.Option
	if b, err := core.ParseAmount(cfg.DefaultBudget); err == nil {
		opts = append(opts, store.WithDefaultBudget(b))
	}

	st := store.New(res.Backend, opts...)
	state := st.Load(ctx)
	logger.Info("Store loaded",
		"backend", bcfg.Type,
		"transactions", len(state.Transactions),
		"budget", state.Budget.String())
	return st, res
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
