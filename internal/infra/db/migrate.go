package db

import (
	"database/sql"
	"fmt"
)

// NotifyChannel is the LISTEN/NOTIFY channel the report trigger publishes to.
const NotifyChannel = "report_events"

// MaxNotifyPayloadBytes is the largest payload pg_notify accepts. Longer
// payloads fail the statement that fired the trigger.
const MaxNotifyPayloadBytes = 7999

// MaxReportIDLength bounds report ids so the reduced payload always fits.
const MaxReportIDLength = 128

// MigrateUp creates the reports and users tables, their indexes and the
// notify_report_change trigger. Every statement is idempotent.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS reports (
    id            TEXT PRIMARY KEY,
    reporter_id   TEXT NOT NULL,
    license_plate TEXT,
    lat           DOUBLE PRECISION,
    lng           DOUBLE PRECISION,
    message       TEXT,
    photo_url     TEXT,
    status        VARCHAR(16) NOT NULL DEFAULT 'open',
    "timestamp"   TEXT NOT NULL,
    expire_at     TIMESTAMPTZ,
    anonymous     BOOLEAN NOT NULL DEFAULT FALSE,
    CONSTRAINT chk_report_id CHECK (char_length(id) <= %[1]d),
    CONSTRAINT chk_report_status CHECK (status IN ('open', 'resolved')),
    CONSTRAINT chk_report_expire CHECK (expire_at IS NULL OR status = 'resolved')
)`, MaxReportIDLength)); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS users (
    id           TEXT PRIMARY KEY,
    device_token TEXT,
    car_plate    TEXT,
    last_lat     DOUBLE PRECISION,
    last_lng     DOUBLE PRECISION
)`); err != nil {
		return err
	}

	indexes := []string{
		// retention sweep: WHERE status = 'resolved' AND expire_at <= now
		`CREATE INDEX IF NOT EXISTS idx_reports_status_expire_at ON reports(status, expire_at)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_reporter_id ON reports(reporter_id)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	// Payload: {"op": "INSERT"|"UPDATE", "id": ..., "old": {"status": ...}|null, "new": row}.
	// Only the previous status is sent for OLD. When the full NEW row would not
	// fit, "new" shrinks to {id, status} and "partial" is set so the listener
	// reloads the row.
	if _, err := db.Exec(fmt.Sprintf(`
CREATE OR REPLACE FUNCTION notify_report_change() RETURNS trigger AS $$
DECLARE
    old_row json;
    payload text;
BEGIN
    IF TG_OP = 'UPDATE' THEN
        old_row := json_build_object('status', OLD.status);
    END IF;
    payload := json_build_object(
        'op', TG_OP, 'id', NEW.id, 'old', old_row, 'new', row_to_json(NEW))::text;
    IF octet_length(payload) > %[2]d THEN
        payload := json_build_object(
            'op', TG_OP, 'id', NEW.id, 'old', old_row,
            'new', json_build_object('id', NEW.id, 'status', NEW.status),
            'partial', true)::text;
    END IF;
    PERFORM pg_notify('%[1]s', payload);
    RETURN NEW;
END;
$$ LANGUAGE plpgsql`, NotifyChannel, MaxNotifyPayloadBytes)); err != nil {
		return err
	}

	if _, err := db.Exec(`DROP TRIGGER IF EXISTS trg_report_change ON reports`); err != nil {
		return err
	}
	if _, err := db.Exec(`
CREATE TRIGGER trg_report_change
    AFTER INSERT OR UPDATE ON reports
    FOR EACH ROW EXECUTE FUNCTION notify_report_change()`); err != nil {
		return err
	}

	return nil
}

// MigrateDown drops the trigger, its function and both tables.
// Use with caution: this deletes all reports and user profiles.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP TRIGGER IF EXISTS trg_report_change ON reports`,
		`DROP FUNCTION IF EXISTS notify_report_change()`,
		`DROP INDEX IF EXISTS idx_reports_reporter_id`,
		`DROP INDEX IF EXISTS idx_reports_status_expire_at`,
		`DROP TABLE IF EXISTS reports`,
		`DROP TABLE IF EXISTS users`,
	}

	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
