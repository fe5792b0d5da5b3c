// Package cli provides common initialization for cmd/spendlog: environment
// loading, logger and config setup, backend selection and shutdown handling.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"spendlog/internal/config"
	"spendlog/internal/kv"
	"spendlog/internal/kv/memory"
	"spendlog/internal/kv/sqlite"
	"spendlog/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from the configured level and
// installs it as the slog default. Falls back to info on a bad level.
func SetupLogger(levelText string) *log.Logger {
	level, err := log.ParseLevel(levelText)
	logger := log.New(level, "main")
	if err != nil {
		logger.Warn("Unknown log level, using info", "value", levelText)
	}
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenBackend selects the key-value backend named by the configuration.
// The returned cleanup closes the backend; for memory it is a no-op.
func OpenBackend(logger *log.Logger, cfg *config.Config) (kv.Store, func()) {
	switch cfg.DataBackend {
	case "sqlite":
		backend, err := sqlite.Open(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to open SQLite backend", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		logger.Info("Using SQLite backend", "path", cfg.SQLiteDBPath)
		return backend, func() {
			if err := backend.Close(); err != nil {
				logger.Warn("Closing SQLite backend failed", "error", err)
			}
		}
	default:
		logger.Info("Using in-memory backend")
		return memory.New(), func() {}
	}
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup()
		}

		cancel()

		select {
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		default:
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
