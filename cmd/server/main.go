// Package main runs the document extraction service: the HTTP API and, when
// enabled, the worker pool that processes queued documents.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/docqueue/internal/config"
	"github.com/phrazzld/docqueue/internal/platform/logger"
	"github.com/phrazzld/docqueue/internal/platform/storage"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("docqueue server: %v", err)
	}
}

func run() error {
	cfg, appLogger, err := initializeApp()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, err := storage.Open(ctx, cfg.Store, appLogger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	app, err := newApplication(cfg, appLogger, kv)
	if err != nil {
		_ = kv.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}

// initializeApp loads configuration and sets up structured logging.
func initializeApp() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"store_driver", cfg.Store.Driver,
		"workers_enabled", cfg.Worker.Enabled,
		"worker_count", cfg.Worker.Count)

	return cfg, appLogger, nil
}
