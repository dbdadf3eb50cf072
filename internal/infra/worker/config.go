package worker

import (
	"fmt"
	"log/slog"
	"time"

	"carlet-notify/internal/pkg/config"
)

// WorkerConfig holds the configuration for the notification worker process:
// the retention sweep schedule, per-invocation timeouts and the ops ports.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// Example usage:
//
//	cfg, _ := LoadConfigFromEnv(logger, metrics)
//	c := cron.New(cron.WithLocation(cfg.Location()))
//	c.AddFunc(cfg.SweepSchedule, sweep)
type WorkerConfig struct {
	// SweepSchedule is the cron expression of the retention sweep.
	// Both 5-field expressions and descriptors ("@every 5m") are accepted.
	// Default: "@every 5m"
	SweepSchedule string

	// Timezone is the IANA timezone name the schedule is evaluated in.
	// Default: "UTC"
	Timezone string

	// SweepTimeout bounds a single sweep run.
	// Range: 10s-30m
	// Default: 2 minutes
	SweepTimeout time.Duration

	// EventTimeout bounds the handling of a single report event.
	// Range: 1s-10m
	// Default: 60 seconds
	EventTimeout time.Duration

	// RetentionPeriod is how long a resolved report is kept before the sweep
	// may delete it. Used when reports are marked resolved.
	// Range: 1m-720h
	// Default: 24 hours
	RetentionPeriod time.Duration

	// HealthPort is the port of the liveness/readiness server.
	// Range: 1024-65535
	// Default: 9091
	HealthPort int

	// MetricsPort is the port of the /metrics and push health server.
	// Range: 1024-65535
	// Default: 9090
	MetricsPort int
}

// DefaultConfig returns a WorkerConfig with production defaults.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		SweepSchedule:   "@every 5m",
		Timezone:        "UTC",
		SweepTimeout:    2 * time.Minute,
		EventTimeout:    60 * time.Second,
		RetentionPeriod: 24 * time.Hour,
		HealthPort:      9091,
		MetricsPort:     9090,
	}
}

// Validate checks every field and returns all problems at once.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.SweepSchedule); err != nil {
		errs = append(errs, fmt.Errorf("sweep schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateDuration(c.SweepTimeout, 10*time.Second, 30*time.Minute); err != nil {
		errs = append(errs, fmt.Errorf("sweep timeout: %w", err))
	}
	if err := config.ValidateDuration(c.EventTimeout, time.Second, 10*time.Minute); err != nil {
		errs = append(errs, fmt.Errorf("event timeout: %w", err))
	}
	if err := config.ValidateDuration(c.RetentionPeriod, time.Minute, 720*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("retention period: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	if err := config.ValidateIntRange(c.MetricsPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("metrics port: %w", err))
	}
	if c.HealthPort == c.MetricsPort {
		errs = append(errs, fmt.Errorf("health port and metrics port must differ (both %d)", c.HealthPort))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// Location returns the schedule's timezone, or UTC if it cannot be loaded.
func (c *WorkerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoadConfigFromEnv loads the worker configuration from the environment.
//
// It never fails: every invalid value is replaced with its default, logged
// as a warning and counted in the worker_config_* metrics.
//
// Environment variables:
//   - SWEEP_SCHEDULE: cron expression (default "@every 5m")
//   - WORKER_TIMEZONE: IANA timezone (default "UTC")
//   - SWEEP_TIMEOUT: duration 10s-30m (default 2m)
//   - EVENT_TIMEOUT: duration 1s-10m (default 60s)
//   - RETENTION_PERIOD: duration 1m-720h (default 24h)
//   - WORKER_HEALTH_PORT: 1024-65535 (default 9091)
//   - METRICS_PORT: 1024-65535 (default 9090)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	var cm *config.ConfigMetrics
	if metrics != nil {
		cm = metrics.ConfigMetrics
	}
	track := config.NewTracker(logger, cm)

	result := config.LoadEnvWithFallback("SWEEP_SCHEDULE", cfg.SweepSchedule, config.ValidateCronSchedule)
	cfg.SweepSchedule = result.Value.(string)
	track.Apply("sweep_schedule", result)

	result = config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	track.Apply("timezone", result)

	result = config.LoadEnvDuration("SWEEP_TIMEOUT", cfg.SweepTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 10*time.Second, 30*time.Minute)
	})
	cfg.SweepTimeout = result.Value.(time.Duration)
	track.Apply("sweep_timeout", result)

	result = config.LoadEnvDuration("EVENT_TIMEOUT", cfg.EventTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Second, 10*time.Minute)
	})
	cfg.EventTimeout = result.Value.(time.Duration)
	track.Apply("event_timeout", result)

	result = config.LoadEnvDuration("RETENTION_PERIOD", cfg.RetentionPeriod, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Minute, 720*time.Hour)
	})
	cfg.RetentionPeriod = result.Value.(time.Duration)
	track.Apply("retention_period", result)

	portValidator := func(v int) error { return config.ValidateIntRange(v, 1024, 65535) }

	result = config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, portValidator)
	cfg.HealthPort = result.Value.(int)
	track.Apply("health_port", result)

	result = config.LoadEnvInt("METRICS_PORT", cfg.MetricsPort, portValidator)
	cfg.MetricsPort = result.Value.(int)
	track.Apply("metrics_port", result)

	if cfg.HealthPort == cfg.MetricsPort {
		defaults := DefaultConfig()
		track.Fallback("ports", fmt.Sprintf("ports collide on %d, falling back to defaults %d/%d",
			cfg.HealthPort, defaults.HealthPort, defaults.MetricsPort))
		cfg.HealthPort, cfg.MetricsPort = defaults.HealthPort, defaults.MetricsPort
	}
	track.Done()

	return &cfg, nil
}
