package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"carlet-notify/internal/infra/db"
	"carlet-notify/internal/infra/notifier"
	"carlet-notify/internal/infra/worker"
	"carlet-notify/internal/observability/logging"
	"carlet-notify/internal/pkg/config"
	"carlet-notify/internal/resilience/retry"
)

// initLogger installs the JSON logger as the process default.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

// openDatabase connects with retries and applies the schema.
func openDatabase(ctx context.Context, logger *slog.Logger) (*sql.DB, error) {
	database, err := connectDatabase(ctx, logger)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(database); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return database, nil
}

// connectDatabase connects to DATABASE_URL with retries.
func connectDatabase(ctx context.Context, logger *slog.Logger) (*sql.DB, error) {
	dsn := os.Getenv("DATABASE_URL")

	var database *sql.DB
	err := retry.WithBackoff(ctx, retry.DBConfig(), func() error {
		var err error
		database, err = db.Open(ctx, dsn, logger)
		if err != nil {
			logger.Warn("database not reachable yet", slog.Any("error", err))
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return database, nil
}

// newMessenger picks the push client or the logging client from PUSH_* config.
// The returned status is nil when pushes are only logged.
func newMessenger(logger *slog.Logger) (notifier.Notifier, worker.PushStatus) {
	cfg := notifier.LoadPushConfigFromEnv(logger, config.NewConfigMetrics("push"))
	if !cfg.Enabled {
		logger.Info("Push delivery disabled, notifications will be logged")
		return notifier.NewLoggingClient(logger), nil
	}

	client := notifier.NewPushClient(cfg)
	logger.Info("Push delivery enabled",
		slog.String("endpoint", cfg.Endpoint),
		slog.Float64("rate_limit", cfg.RateLimit),
		slog.Int("burst", cfg.Burst),
		slog.Int("parallelism", cfg.Parallelism))
	return client, client
}
