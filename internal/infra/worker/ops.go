package worker

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
)

// PushStatus reports the state of the push client's circuit breaker.
// A nil PushStatus means pushes are only logged.
type PushStatus interface {
	BreakerState() string
	BreakerCounts() gobreaker.Counts
}

// PushHealthResponse is the body of GET /health/push.
type PushHealthResponse struct {
	Healthy      bool           `json:"healthy"`
	Mode         string         `json:"mode"`
	BreakerState string         `json:"breaker_state,omitempty"`
	Breaker      *BreakerCounts `json:"breaker,omitempty"`
}

// BreakerCounts are the breaker's counters for its current window.
type BreakerCounts struct {
	Requests            uint32 `json:"requests"`
	TotalFailures       uint32 `json:"total_failures"`
	ConsecutiveFailures uint32 `json:"consecutive_failures"`
}

// OpsServer serves the metrics endpoint and push delivery health:
//   - GET /metrics: Prometheus exposition
//   - GET /health: liveness, always 200
//   - GET /health/push: 200 unless the push circuit breaker is open
type OpsServer struct {
	addr   string
	push   PushStatus
	logger *slog.Logger
}

// NewOpsServer creates an ops server. push may be nil.
func NewOpsServer(addr string, push PushStatus, logger *slog.Logger) *OpsServer {
	return &OpsServer{addr: addr, push: push, logger: logger}
}

// Handler returns the ops router.
func (s *OpsServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.Route("/health", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, healthResponse{Status: "healthy"}, s.logger)
		})
		r.Get("/push", s.handlePushHealth)
	})
	return r
}

// Start serves until ctx is cancelled.
func (s *OpsServer) Start(ctx context.Context) error {
	return serve(ctx, &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}, "ops", s.logger)
}

func (s *OpsServer) handlePushHealth(w http.ResponseWriter, _ *http.Request) {
	if s.push == nil {
		writeJSON(w, http.StatusOK, PushHealthResponse{Healthy: true, Mode: "logging"}, s.logger)
		return
	}

	state := s.push.BreakerState()
	counts := s.push.BreakerCounts()
	resp := PushHealthResponse{
		Healthy:      state != "open",
		Mode:         "push",
		BreakerState: state,
		Breaker: &BreakerCounts{
			Requests:            counts.Requests,
			TotalFailures:       counts.TotalFailures,
			ConsecutiveFailures: counts.ConsecutiveFailures,
		},
	}
	status := http.StatusOK
	if !resp.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp, s.logger)
}
