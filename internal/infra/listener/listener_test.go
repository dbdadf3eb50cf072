package listener

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carlet-notify/internal/domain/entity"
	"carlet-notify/internal/observability/logging"
)

/* ─────────────────────────── fakes ─────────────────────────── */

type fakeConn struct {
	notifications chan *pgconn.Notification
	execErr       error
	mu            sync.Mutex
	execs         []string
	closed        bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{notifications: make(chan *pgconn.Notification, 8)}
}

func (c *fakeConn) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execs = append(c.execs, sql)
	return pgconn.CommandTag{}, c.execErr
}

func (c *fakeConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case n, ok := <-c.notifications:
		if !ok {
			return nil, errors.New("connection reset")
		}
		return n, nil
	}
}

func (c *fakeConn) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type recorder struct {
	mu      sync.Mutex
	created []string
	updated [][2]*entity.Report
	ids     []string
	err     error
	done    chan struct{}
}

func newRecorder() *recorder { return &recorder{done: make(chan struct{}, 16)} }

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnCreated: func(ctx context.Context, id string, _ *entity.Report) error {
			r.mu.Lock()
			r.created = append(r.created, id)
			r.ids = append(r.ids, logging.RequestIDFromContext(ctx))
			r.mu.Unlock()
			r.done <- struct{}{}
			return r.err
		},
		OnUpdated: func(_ context.Context, _ string, before, after *entity.Report) error {
			r.mu.Lock()
			r.updated = append(r.updated, [2]*entity.Report{before, after})
			r.mu.Unlock()
			r.done <- struct{}{}
			return r.err
		},
	}
}

func testConfig() Config {
	return Config{Channel: "report_events", EventTimeout: time.Second, MinBackoff: time.Millisecond, MaxBackoff: 4 * time.Millisecond}
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handler")
	}
}

/* ─────────────────────────── tests ─────────────────────────── */

func TestListener_Handle_Routing(t *testing.T) {
	rec := newRecorder()
	l := New(testConfig(), nil, rec.handlers(), nil)

	l.Handle(context.Background(), `{"op":"INSERT","id":"r1","new":{"id":"r1","status":"open"}}`)
	l.Handle(context.Background(), `{"op":"UPDATE","id":"r1","old":{"id":"r1","status":"open"},"new":{"id":"r1","status":"resolved"}}`)
	l.Handle(context.Background(), `garbage`)

	assert.Equal(t, []string{"r1"}, rec.created)
	require.Len(t, rec.updated, 1)
	assert.Equal(t, entity.ReportStatusOpen, rec.updated[0][0].Status)
	assert.Equal(t, entity.ReportStatusResolved, rec.updated[0][1].Status)
	require.Len(t, rec.ids, 1)
	assert.NotEmpty(t, rec.ids[0], "each event gets a request id")
}

func TestListener_Handle_ErrorIsCounted(t *testing.T) {
	rec := newRecorder()
	rec.err = errors.New("store unavailable")
	l := New(testConfig(), nil, rec.handlers(), nil)
	before := testutil.ToFloat64(eventsTotal.WithLabelValues(OpInsert, "error"))

	assert.NotPanics(t, func() {
		l.Handle(context.Background(), `{"op":"INSERT","id":"r1"}`)
	})

	assert.Equal(t, before+1, testutil.ToFloat64(eventsTotal.WithLabelValues(OpInsert, "error")))
}

func TestListener_Handle_NilHandler(t *testing.T) {
	l := New(testConfig(), nil, Handlers{}, nil)
	assert.NotPanics(t, func() {
		l.Handle(context.Background(), `{"op":"UPDATE","id":"r1"}`)
	})
}

func TestListener_Run_ListensAndDispatches(t *testing.T) {
	conn := newFakeConn()
	rec := newRecorder()
	l := New(testConfig(), func(context.Context) (Conn, error) { return conn, nil }, rec.handlers(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	conn.notifications <- &pgconn.Notification{Channel: "other", Payload: `{"op":"INSERT","id":"skip"}`}
	conn.notifications <- &pgconn.Notification{Channel: "report_events", Payload: `{"op":"INSERT","id":"r1"}`}
	waitFor(t, rec.done)
	assert.NoError(t, l.Healthy(context.Background()))

	cancel()
	require.NoError(t, <-errCh)
	assert.ErrorIs(t, l.Healthy(context.Background()), ErrNotListening)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"r1"}, rec.created)
	conn.mu.Lock()
	defer conn.mu.Unlock()
	assert.Equal(t, []string{`LISTEN "report_events"`}, conn.execs)
	assert.True(t, conn.closed)
}

func TestListener_Run_Reconnects(t *testing.T) {
	first := newFakeConn()
	second := newFakeConn()
	rec := newRecorder()

	var mu sync.Mutex
	dials := 0
	dial := func(context.Context) (Conn, error) {
		mu.Lock()
		defer mu.Unlock()
		dials++
		switch dials {
		case 1:
			return nil, errors.New("connection refused")
		case 2:
			return first, nil
		default:
			return second, nil
		}
	}
	l := New(testConfig(), dial, rec.handlers(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	first.notifications <- &pgconn.Notification{Channel: "report_events", Payload: `{"op":"INSERT","id":"r1"}`}
	waitFor(t, rec.done)
	close(first.notifications)

	second.notifications <- &pgconn.Notification{Channel: "report_events", Payload: `{"op":"INSERT","id":"r2"}`}
	waitFor(t, rec.done)

	cancel()
	require.NoError(t, <-errCh)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"r1", "r2"}, rec.created)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, dials)
}

func TestListener_HealthyBeforeRun(t *testing.T) {
	l := New(testConfig(), nil, Handlers{}, nil)
	assert.ErrorIs(t, l.Healthy(context.Background()), ErrNotListening)
}

func TestNew_Defaults(t *testing.T) {
	l := New(Config{Channel: "c"}, nil, Handlers{}, nil)
	assert.Equal(t, DefaultConfig("c"), l.cfg)
}

func TestListener_Handle_PartialEventReloadsRow(t *testing.T) {
	stored := &entity.Report{
		ID:         "r1",
		ReporterID: "u1",
		Message:    strings.Repeat("x", 9000),
		Status:     entity.ReportStatusOpen,
		Timestamp:  "2026-10-19T08:00:00.000Z",
	}

	t.Run("insert gets the stored row", func(t *testing.T) {
		var got *entity.Report
		l := New(testConfig(), nil, Handlers{
			OnCreated: func(_ context.Context, _ string, report *entity.Report) error {
				got = report
				return nil
			},
			Reload: func(_ context.Context, id string) (*entity.Report, error) {
				assert.Equal(t, "r1", id)
				copied := *stored
				return &copied, nil
			},
		}, nil)

		l.Handle(context.Background(), `{"op":"INSERT","id":"r1","old":null,"new":{"id":"r1","status":"open"},"partial":true}`)

		require.NotNil(t, got)
		assert.Equal(t, "u1", got.ReporterID)
		assert.Len(t, got.Message, 9000)
	})

	t.Run("update keeps the published status", func(t *testing.T) {
		var before, after *entity.Report
		l := New(testConfig(), nil, Handlers{
			OnUpdated: func(_ context.Context, _ string, b, a *entity.Report) error {
				before, after = b, a
				return nil
			},
			Reload: func(context.Context, string) (*entity.Report, error) {
				copied := *stored
				return &copied, nil
			},
		}, nil)

		l.Handle(context.Background(), `{"op":"UPDATE","id":"r1","old":{"status":"open"},"new":{"id":"r1","status":"resolved"},"partial":true}`)

		require.NotNil(t, before)
		require.NotNil(t, after)
		assert.Equal(t, entity.ReportStatusOpen, before.Status)
		assert.Equal(t, entity.ReportStatusResolved, after.Status)
		assert.Equal(t, "u1", after.ReporterID)
	})

	t.Run("missing row is an error", func(t *testing.T) {
		called := false
		l := New(testConfig(), nil, Handlers{
			OnCreated: func(context.Context, string, *entity.Report) error {
				called = true
				return nil
			},
			Reload: func(context.Context, string) (*entity.Report, error) { return nil, nil },
		}, nil)
		errorsBefore := testutil.ToFloat64(eventsTotal.WithLabelValues(OpInsert, "error"))

		l.Handle(context.Background(), `{"op":"INSERT","id":"gone","new":{"id":"gone","status":"open"},"partial":true}`)

		assert.False(t, called)
		assert.Equal(t, errorsBefore+1, testutil.ToFloat64(eventsTotal.WithLabelValues(OpInsert, "error")))
	})

	t.Run("no reload handler drops the event", func(t *testing.T) {
		called := false
		l := New(testConfig(), nil, Handlers{
			OnCreated: func(context.Context, string, *entity.Report) error {
				called = true
				return nil
			},
		}, nil)

		l.Handle(context.Background(), `{"op":"INSERT","id":"r1","new":{"id":"r1","status":"open"},"partial":true}`)

		assert.False(t, called)
	})
}
