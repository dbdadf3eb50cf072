package repository

import (
	"context"
	"time"

	"carlet-notify/internal/domain/entity"
)

// MaxBatchDelete is the largest number of reports DeleteBatch removes in one
// transaction.
const MaxBatchDelete = 500

type ReportRepository interface {
	// Get returns the report with the given ID, or (nil, nil) if it does not exist.
	Get(ctx context.Context, id string) (*entity.Report, error)
	// Create inserts a new report. An empty ID is filled in by the caller.
	Create(ctx context.Context, report *entity.Report) error
	// MarkResolved sets the report's status to resolved and its ExpireAt to
	// resolvedAt + retention in one statement. Returns entity.ErrNotFound when
	// no report has that ID.
	MarkResolved(ctx context.Context, id string, resolvedAt time.Time, retention time.Duration) error
	// ListExpiredResolved returns the IDs of resolved reports whose ExpireAt is
	// at or before now, oldest expiry first, at most limit of them.
	ListExpiredResolved(ctx context.Context, now time.Time, limit int) ([]string, error)
	// DeleteBatch deletes the given reports atomically: either every row is
	// removed or none is. At most MaxBatchDelete IDs are accepted.
	DeleteBatch(ctx context.Context, ids []string) (int64, error)
}
