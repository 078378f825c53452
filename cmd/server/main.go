package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tjfontaine/fullstack-app-server/internal/api/items"
	"github.com/tjfontaine/fullstack-app-server/internal/config"
	"github.com/tjfontaine/fullstack-app-server/internal/server"
	"github.com/tjfontaine/fullstack-app-server/internal/storage"
	"github.com/tjfontaine/fullstack-app-server/internal/storage/memory"
	"github.com/tjfontaine/fullstack-app-server/internal/storage/sqlite"
	"github.com/tjfontaine/fullstack-app-server/internal/telemetry"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	os.Exit(run(cfg, logger, sigChan))
}

// run serves until stop receives a signal or the server fails, and returns
// the process exit code. Deferred cleanup runs before it returns.
func run(cfg *config.Config, logger *slog.Logger, stop <-chan os.Signal) int {
	var serverOpts []server.Option
	if cfg.Server.RequestTimeout > 0 {
		serverOpts = append(serverOpts, server.WithRequestTimeout(cfg.Server.RequestTimeout))
	}

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(cfg.Telemetry.ServiceName, logger)
		if err != nil {
			logger.Error("failed to initialize tracer", slog.String("error", err.Error()))
			return 1
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
			}
		}()
		serverOpts = append(serverOpts, server.WithTracing(cfg.Telemetry.ServiceName))
	}

	store, err := openStore(cfg.Storage)
	if err != nil {
		logger.Error("failed to open storage", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	pipeline, err := server.Build(server.Probe(cfg.Server, logger), items.NewRouter(store), logger)
	if err != nil {
		logger.Error("failed to build pipeline", slog.String("error", err.Error()))
		return 1
	}

	srv := server.New(cfg.Server.Port, pipeline, logger, serverOpts...)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case sig := <-stop:
		logger.Info("Shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			return 1
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("Server shutdown complete")
	return 0
}

func openStore(cfg config.StorageConfig) (storage.ItemStore, error) {
	switch cfg.Type {
	case "memory":
		return memory.New(), nil
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
		}
		return sqlite.New(cfg.SQLite.Path)
	default:
		return nil, errors.New("unknown storage type: " + cfg.Type)
	}
}
