// Package retention purges resolved reports whose retention window has passed.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"carlet-notify/internal/observability/logging"
	"carlet-notify/internal/observability/tracing"
	"carlet-notify/internal/pkg/batch"
	"carlet-notify/internal/repository"
)

// MaxPerSweep caps how many expired reports one sweep looks at. Anything
// beyond it is picked up by a later tick.
const MaxPerSweep = 1000

// SweepResult summarizes one sweep.
type SweepResult struct {
	Found   int
	Deleted int64
	Batches int
	Err     error
}

// Sweeper deletes expired resolved reports.
type Sweeper struct {
	repo   repository.ReportRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewSweeper creates a Sweeper. A nil clock means time.Now.
func NewSweeper(repo repository.ReportRepository, clock func() time.Time, logger *slog.Logger) *Sweeper {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{repo: repo, now: clock, logger: logger}
}

// Sweep runs one cleanup pass. It reads at most MaxPerSweep expired IDs and
// deletes them in sub-batches of repository.MaxBatchDelete, each committed
// before the next starts. Errors are logged and reported in the result but
// never returned: the next scheduled run simply queries again.
func (s *Sweeper) Sweep(ctx context.Context) (res SweepResult) {
	logger := logging.WithRequestID(ctx, s.logger)
	start := time.Now()

	ctx, span := tracing.StartSpan(ctx, "retention.sweep")
	defer func() {
		span.SetAttributes(
			attribute.Int("retention.found", res.Found),
			attribute.Int64("retention.deleted", res.Deleted),
		)
		tracing.EndSpan(span, res.Err)

		status := "success"
		switch {
		case res.Err != nil:
			status = "failure"
		case res.Found == 0:
			status = "empty"
		}
		RecordSweep(status, res.Deleted, time.Since(start))
	}()

	ids, err := s.repo.ListExpiredResolved(ctx, s.now(), MaxPerSweep)
	if err != nil {
		res.Err = err
		logger.Error("Error cleaning up resolved reports", slog.Any("error", err))
		return res
	}
	res.Found = len(ids)

	if len(ids) == 0 {
		logger.Info("No resolved reports to cleanup")
		return res
	}

	for _, chunk := range batch.Chunk(ids, repository.MaxBatchDelete) {
		n, err := s.repo.DeleteBatch(ctx, chunk)
		if err != nil {
			res.Err = err
			logger.Error("Error cleaning up resolved reports",
				slog.Int("batch", res.Batches),
				slog.Int64("deleted_so_far", res.Deleted),
				slog.Any("error", err))
			return res
		}
		res.Batches++
		res.Deleted += n
	}

	logger.Info(fmt.Sprintf("Deleted %d resolved reports", res.Deleted),
		slog.Int("batches", res.Batches))
	return res
}
