package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"carlet-notify/internal/domain/entity"
	"carlet-notify/internal/repository"
)

// ErrBatchTooLarge is returned by DeleteBatch when more than
// repository.MaxBatchDelete IDs are passed in.
var ErrBatchTooLarge = errors.New("batch exceeds maximum size")

type ReportRepo struct{ db *sql.DB }

func NewReportRepo(db *sql.DB) repository.ReportRepository {
	return &ReportRepo{db: db}
}

const reportColumns = `id, reporter_id, license_plate, lat, lng, message, photo_url, status, "timestamp", expire_at, anonymous`

// scanReport reads one row selected with reportColumns.
func scanReport(scan func(dest ...any) error) (*entity.Report, error) {
	var (
		report   entity.Report
		plate    sql.NullString
		lat, lng sql.NullFloat64
		message  sql.NullString
		photoURL sql.NullString
		status   string
		expireAt sql.NullTime
	)
	if err := scan(
		&report.ID, &report.ReporterID, &plate, &lat, &lng,
		&message, &photoURL, &status, &report.Timestamp, &expireAt, &report.Anonymous,
	); err != nil {
		return nil, err
	}

	report.LicensePlate = plate.String
	report.Message = message.String
	report.PhotoURL = photoURL.String
	report.Status = entity.ReportStatus(status)
	if lat.Valid && lng.Valid {
		report.Location = &entity.Location{Lat: lat.Float64, Lng: lng.Float64}
	}
	if expireAt.Valid {
		t := expireAt.Time
		report.ExpireAt = &t
	}
	return &report, nil
}

func (repo *ReportRepo) Get(ctx context.Context, id string) (*entity.Report, error) {
	const query = `
SELECT ` + reportColumns + `
FROM reports
WHERE id = $1
LIMIT 1`
	report, err := scanReport(repo.db.QueryRowContext(ctx, query, id).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return report, nil
}

func (repo *ReportRepo) Create(ctx context.Context, report *entity.Report) error {
	if err := report.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	const query = `
INSERT INTO reports
       (id, reporter_id, license_plate, lat, lng, message, photo_url, status, "timestamp", expire_at, anonymous)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	var lat, lng sql.NullFloat64
	if report.Location != nil {
		lat = sql.NullFloat64{Float64: report.Location.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: report.Location.Lng, Valid: true}
	}
	var expireAt sql.NullTime
	if report.ExpireAt != nil {
		expireAt = sql.NullTime{Time: *report.ExpireAt, Valid: true}
	}

	_, err := repo.db.ExecContext(ctx, query,
		report.ID, report.ReporterID, nullString(report.LicensePlate), lat, lng,
		nullString(report.Message), nullString(report.PhotoURL), string(report.Status),
		report.Timestamp, expireAt, report.Anonymous,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *ReportRepo) MarkResolved(ctx context.Context, id string, resolvedAt time.Time, retention time.Duration) error {
	const query = `
UPDATE reports SET
       status    = 'resolved',
       expire_at = $2
WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id, resolvedAt.Add(retention))
	if err != nil {
		return fmt.Errorf("MarkResolved: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("MarkResolved: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *ReportRepo) ListExpiredResolved(ctx context.Context, now time.Time, limit int) ([]string, error) {
	const query = `
SELECT id
FROM reports
WHERE status = 'resolved'
  AND expire_at <= $1
ORDER BY expire_at ASC
LIMIT $2`
	rows, err := repo.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("ListExpiredResolved: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ListExpiredResolved: Scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListExpiredResolved: rows.Err: %w", err)
	}
	return ids, nil
}

func (repo *ReportRepo) DeleteBatch(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if len(ids) > repository.MaxBatchDelete {
		return 0, fmt.Errorf("DeleteBatch: %d ids: %w", len(ids), ErrBatchTooLarge)
	}

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("DeleteBatch: BeginTx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args := deleteReportsQuery(ids)
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("DeleteBatch: ExecContext: %w", err)
	}
	deleted, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("DeleteBatch: Commit: %w", err)
	}
	return deleted, nil
}

// deleteReportsQuery builds "DELETE ... WHERE id IN ($1, ..., $n)" for ids.
func deleteReportsQuery(ids []string) (string, []any) {
	var sb strings.Builder
	sb.WriteString("DELETE FROM reports WHERE id IN (")
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("$")
		sb.WriteString(strconv.Itoa(i + 1))
		args[i] = id
	}
	sb.WriteString(")")
	return sb.String(), args
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
