// Package listener turns Postgres LISTEN/NOTIFY messages from the report
// trigger into calls on the report-created and report-updated handlers.
package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"carlet-notify/internal/domain/entity"
	"carlet-notify/internal/observability/logging"
)

// ReportCreatedFunc handles a newly inserted report.
type ReportCreatedFunc func(ctx context.Context, reportID string, report *entity.Report) error

// ReportUpdatedFunc handles an update with both row snapshots.
type ReportUpdatedFunc func(ctx context.Context, reportID string, before, after *entity.Report) error

// ReportLoaderFunc reads the current row of a report.
type ReportLoaderFunc func(ctx context.Context, reportID string) (*entity.Report, error)

// Handlers routes decoded events. A nil handler drops its events. Reload
// fills in events whose row was too large for the notification payload;
// without it such events are dropped.
type Handlers struct {
	OnCreated ReportCreatedFunc
	OnUpdated ReportUpdatedFunc
	Reload    ReportLoaderFunc
}

// Conn is the subset of *pgx.Conn the listener needs.
type Conn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

// Dialer opens a new connection.
type Dialer func(ctx context.Context) (Conn, error)

// PgxDialer dials dsn with pgx.Connect.
func PgxDialer(dsn string) Dialer {
	return func(ctx context.Context) (Conn, error) {
		conn, err := pgx.Connect(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// Config controls the listener.
type Config struct {
	Channel      string
	EventTimeout time.Duration
	MinBackoff   time.Duration
	MaxBackoff   time.Duration
}

// DefaultConfig returns the listener defaults for channel.
func DefaultConfig(channel string) Config {
	return Config{
		Channel:      channel,
		EventTimeout: 60 * time.Second,
		MinBackoff:   5 * time.Second,
		MaxBackoff:   30 * time.Second,
	}
}

// Listener receives report change notifications and dispatches them one at a
// time. Notifications published while the connection is down are not
// replayed, so handlers see each committed change at most once.
type Listener struct {
	cfg       Config
	dial      Dialer
	handlers  Handlers
	logger    *slog.Logger
	listening atomic.Bool
}

// ErrNotListening is returned by Healthy while no LISTEN session is active.
var ErrNotListening = errors.New("not listening for report events")

// Healthy reports whether a LISTEN session is currently active. It fits the
// worker's readiness check signature.
func (l *Listener) Healthy(context.Context) error {
	if !l.listening.Load() {
		return ErrNotListening
	}
	return nil
}

// New creates a Listener.
func New(cfg Config, dial Dialer, handlers Handlers, logger *slog.Logger) *Listener {
	def := DefaultConfig(cfg.Channel)
	if cfg.EventTimeout <= 0 {
		cfg.EventTimeout = def.EventTimeout
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = def.MinBackoff
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = cfg.MinBackoff
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{cfg: cfg, dial: dial, handlers: handlers, logger: logger}
}

// Run listens until ctx is cancelled, reconnecting with exponential backoff
// whenever the connection fails. It returns nil on cancellation.
func (l *Listener) Run(ctx context.Context) error {
	backoff := l.cfg.MinBackoff
	for {
		err := l.session(ctx)
		if ctx.Err() != nil {
			return nil
		}

		l.logger.Warn("listener disconnected, reconnecting",
			slog.String("channel", l.cfg.Channel),
			slog.Duration("backoff", backoff),
			slog.Any("error", err))
		reconnectsTotal.Inc()

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > l.cfg.MaxBackoff {
			backoff = l.cfg.MaxBackoff
		}
	}
}

// session runs one connection until it fails or ctx is cancelled.
func (l *Listener) session(ctx context.Context) error {
	conn, err := l.dial(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.cfg.Channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	l.listening.Store(true)
	defer l.listening.Store(false)
	l.logger.Info("listening for report events", slog.String("channel", l.cfg.Channel))

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait: %w", err)
		}
		if n.Channel != l.cfg.Channel {
			continue
		}
		l.Handle(ctx, n.Payload)
	}
}

// Handle decodes one payload and runs the matching handler under a fresh
// request ID and the configured event timeout. Errors are logged, never
// returned.
func (l *Listener) Handle(ctx context.Context, payload string) {
	ev, err := DecodeEvent(payload)
	if err != nil {
		eventsTotal.WithLabelValues("unknown", "invalid").Inc()
		l.logger.Warn("skipping undecodable event", slog.Any("error", err))
		return
	}

	ctx, requestID := logging.NewRequestID(ctx)
	ctx, cancel := context.WithTimeout(ctx, l.cfg.EventTimeout)
	defer cancel()

	logger := l.logger.With(
		slog.String("request_id", requestID),
		slog.String("op", ev.Op),
		slog.String("report_id", ev.ID))

	if ev.Partial {
		if err := l.reload(ctx, ev); err != nil {
			eventsTotal.WithLabelValues(ev.Op, "error").Inc()
			logger.Error("reloading oversized report event failed", slog.Any("error", err))
			return
		}
	}

	switch ev.Op {
	case OpInsert:
		if l.handlers.OnCreated != nil {
			err = l.handlers.OnCreated(ctx, ev.ID, ev.New)
		}
	case OpUpdate:
		if l.handlers.OnUpdated != nil {
			err = l.handlers.OnUpdated(ctx, ev.ID, ev.Old, ev.New)
		}
	}

	if err != nil {
		eventsTotal.WithLabelValues(ev.Op, "error").Inc()
		logger.Error("report event handler failed",
			slog.Bool("timeout", errors.Is(err, context.DeadlineExceeded)),
			slog.Any("error", err))
		return
	}
	eventsTotal.WithLabelValues(ev.Op, "handled").Inc()
	logger.Debug("report event handled")
}

// reload replaces the reduced New snapshot of ev with the stored row. The
// status published by the trigger is kept so the handlers see the committed
// transition even if the row changed again since.
func (l *Listener) reload(ctx context.Context, ev *ReportEvent) error {
	if l.handlers.Reload == nil {
		return errors.New("partial event and no reload handler")
	}
	report, err := l.handlers.Reload(ctx, ev.ID)
	if err != nil {
		return fmt.Errorf("reload %s: %w", ev.ID, err)
	}
	if report == nil {
		return fmt.Errorf("reload %s: %w", ev.ID, entity.ErrNotFound)
	}
	if ev.New != nil && ev.New.Status != "" && ev.New.Status != report.Status {
		report.Status = ev.New.Status
		if !report.IsResolved() {
			report.ExpireAt = nil
		}
	}
	ev.New = report
	return nil
}
