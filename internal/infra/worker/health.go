package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

// Check reports whether one dependency of the worker is usable.
type Check func(ctx context.Context) error

type namedCheck struct {
	name  string
	check Check
}

// HealthServer serves the worker's probes:
//   - GET /health: liveness, always 200
//   - GET /health/ready: 200 once SetReady(true) was called and every
//     registered check passes, 503 otherwise
//
// Example usage:
//
//	healthServer := NewHealthServer(":9091", logger)
//	healthServer.AddCheck("database", db.PingContext)
//	go healthServer.Start(ctx)
//	healthServer.SetReady(true)
type HealthServer struct {
	addr    string
	logger  *slog.Logger
	isReady *atomic.Bool
	checks  []namedCheck
}

// healthResponse is the JSON body of the probe endpoints.
type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// NewHealthServer creates a health server that starts out not ready.
func NewHealthServer(addr string, logger *slog.Logger) *HealthServer {
	return &HealthServer{
		addr:    addr,
		logger:  logger,
		isReady: &atomic.Bool{},
	}
}

// AddCheck registers a readiness check. Call it before Start.
func (h *HealthServer) AddCheck(name string, check Check) {
	h.checks = append(h.checks, namedCheck{name: name, check: check})
}

// Handler returns the probe router.
func (h *HealthServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", h.handleLiveness)
	r.Get("/health/ready", h.handleReadiness)
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully within 5
// seconds. It returns http.ErrServerClosed after a clean shutdown.
func (h *HealthServer) Start(ctx context.Context) error {
	return serve(ctx, &http.Server{
		Addr:         h.addr,
		Handler:      h.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, "health", h.logger)
}

// SetReady flips the readiness probe.
func (h *HealthServer) SetReady(ready bool) {
	h.isReady.Store(ready)
	h.logger.Info("health server readiness changed", slog.Bool("ready", ready))
}

func (h *HealthServer) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"}, h.logger)
}

// checkTimeout bounds each readiness check.
const checkTimeout = 2 * time.Second

func (h *HealthServer) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if !h.isReady.Load() {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "not ready"}, h.logger)
		return
	}

	resp := healthResponse{Status: "ok"}
	status := http.StatusOK
	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
	}
	for _, c := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.check(ctx)
		cancel()
		if err != nil {
			resp.Checks[c.name] = err.Error()
			resp.Status = "not ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[c.name] = "ok"
	}
	writeJSON(w, status, resp, h.logger)
}

// serve runs srv until ctx is done.
func serve(ctx context.Context, srv *http.Server, name string, logger *slog.Logger) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info(name+" server starting", slog.String("addr", srv.Addr))
		errChan <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		logger.Info(name + " server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error(name+" server shutdown failed", slog.Any("error", err))
			return err
		}
		logger.Info(name + " server stopped")
		return http.ErrServerClosed

	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error(name+" server failed", slog.Any("error", err))
		}
		return err
	}
}

func writeJSON(w http.ResponseWriter, status int, body any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", slog.Any("error", err))
	}
}
