package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"carlet-notify/internal/domain/entity"
	pg "carlet-notify/internal/infra/adapter/persistence/postgres"
	"carlet-notify/internal/infra/db"
	"carlet-notify/internal/infra/listener"
	"carlet-notify/internal/infra/worker"
	"carlet-notify/internal/observability/logging"
	"carlet-notify/internal/usecase/notify"
	"carlet-notify/internal/usecase/retention"
)

const sweepJob = "retention_sweep"

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Listen for report events and run the scheduled retention sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runWorker(ctx)
		},
	}
}

func runWorker(ctx context.Context) error {
	logger := initLogger()

	// Load worker configuration (fail-open strategy)
	metrics := worker.NewWorkerMetrics()
	cfg, err := worker.LoadConfigFromEnv(logger, metrics)
	if err != nil {
		return fmt.Errorf("load worker configuration: %w", err)
	}
	logger.Info("worker configuration loaded",
		slog.String("sweep_schedule", cfg.SweepSchedule),
		slog.String("timezone", cfg.Timezone),
		slog.Duration("sweep_timeout", cfg.SweepTimeout),
		slog.Duration("event_timeout", cfg.EventTimeout),
		slog.Int("health_port", cfg.HealthPort),
		slog.Int("metrics_port", cfg.MetricsPort))

	database, err := openDatabase(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	texts, err := notify.LoadCopy(os.Getenv("NOTIFY_COPY_FILE"))
	if err != nil {
		logger.Warn("notification copy not loaded, using defaults", slog.Any("error", err))
	}

	messenger, pushStatus := newMessenger(logger)
	users := pg.NewUserRepo(database)
	fanOut := notify.NewFanOut(users, notify.NewDispatcher(messenger, logger), texts, logger)
	resolution := notify.NewResolutionNotifier(users, messenger, texts, logger)
	reports := pg.NewReportRepo(database)
	sweeper := retention.NewSweeper(reports, nil, logger)

	events := listener.New(
		listener.Config{Channel: db.NotifyChannel, EventTimeout: cfg.EventTimeout},
		listener.PgxDialer(os.Getenv("DATABASE_URL")),
		listener.Handlers{
			OnCreated: func(ctx context.Context, reportID string, report *entity.Report) error {
				_, err := fanOut.HandleReportCreated(ctx, reportID, report)
				return err
			},
			OnUpdated: func(ctx context.Context, reportID string, before, after *entity.Report) error {
				_, err := resolution.HandleReportUpdated(ctx, reportID, before, after)
				return err
			},
			Reload: reports.Get,
		},
		logger)

	healthServer := worker.NewHealthServer(fmt.Sprintf(":%d", cfg.HealthPort), logger)
	healthServer.AddCheck("database", database.PingContext)
	healthServer.AddCheck("listener", events.Healthy)
	opsServer := worker.NewOpsServer(fmt.Sprintf(":%d", cfg.MetricsPort), pushStatus, logger)

	c := cron.New(cron.WithLocation(cfg.Location()))
	if _, err := c.AddFunc(cfg.SweepSchedule, func() {
		runSweepJob(ctx, logger, sweeper, cfg.SweepTimeout, metrics)
	}); err != nil {
		return fmt.Errorf("add sweep job: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreClosed(healthServer.Start(gctx)) })
	g.Go(func() error { return ignoreClosed(opsServer.Start(gctx)) })
	g.Go(func() error { return events.Run(gctx) })

	c.Start()
	healthServer.SetReady(true)
	logger.Info("worker started",
		slog.String("schedule", cfg.SweepSchedule),
		slog.String("timezone", cfg.Timezone),
		slog.String("channel", db.NotifyChannel))

	g.Go(func() error {
		<-gctx.Done()
		healthServer.SetReady(false)
		<-c.Stop().Done()
		logger.Info("cron stopped")
		return nil
	})

	return g.Wait()
}

// runSweepJob executes one sweep with timeout and records job metrics.
func runSweepJob(ctx context.Context, logger *slog.Logger, sweeper *retention.Sweeper, timeout time.Duration, metrics *worker.WorkerMetrics) {
	start := time.Now()
	metrics.RecordJobRun(sweepJob, "started")

	ctx, _ = logging.NewRequestID(ctx)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res := sweeper.Sweep(ctx)
	metrics.RecordJobDuration(sweepJob, time.Since(start).Seconds())
	if res.Err != nil {
		metrics.RecordJobRun(sweepJob, "failure")
		return
	}
	metrics.RecordJobRun(sweepJob, "success")
	metrics.RecordLastSuccess(sweepJob)
	logger.Debug("sweep job finished",
		slog.Int64("deleted", res.Deleted),
		slog.Duration("duration", time.Since(start)))
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// withDatabase runs fn against a migrated database for one-shot commands.
func withDatabase(cmd *cobra.Command, fn func(ctx context.Context, logger *slog.Logger, database *sql.DB) error) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := initLogger()
	database, err := openDatabase(ctx, logger)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	return fn(ctx, logger, database)
}
