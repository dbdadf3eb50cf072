package notifier

import (
	"log/slog"
	"time"

	"carlet-notify/internal/pkg/config"
)

// LoadPushConfigFromEnv builds a PushConfig from PUSH_* variables. Invalid
// values fall back to DefaultPushConfig with a warning. Push delivery is only
// enabled when PUSH_ENABLED is true and PUSH_ENDPOINT is a valid URL.
//
// Environment variables:
//   - PUSH_ENABLED: bool (default false)
//   - PUSH_ENDPOINT: http(s) URL of the gateway's send endpoint
//   - PUSH_API_KEY: bearer token (optional)
//   - PUSH_TIMEOUT: duration 1s-60s (default 10s)
//   - PUSH_RATE_LIMIT: requests per second 0.1-10000 (default 50)
//   - PUSH_BURST: 1-10000 (default 100)
//   - PUSH_PARALLELISM: 1-100 (default 16)
func LoadPushConfigFromEnv(logger *slog.Logger, metrics *config.ConfigMetrics) PushConfig {
	cfg := DefaultPushConfig()
	track := config.NewTracker(logger, metrics)

	result := config.LoadEnvBool("PUSH_ENABLED", cfg.Enabled)
	cfg.Enabled = result.Value.(bool)
	track.Apply("push_enabled", result)

	result = config.LoadEnvWithFallback("PUSH_ENDPOINT", "", config.ValidateHTTPURL)
	cfg.Endpoint = result.Value.(string)
	track.Apply("push_endpoint", result)

	cfg.APIKey = config.LoadEnvString("PUSH_API_KEY", "")

	result = config.LoadEnvDuration("PUSH_TIMEOUT", cfg.Timeout, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Second, time.Minute)
	})
	cfg.Timeout = result.Value.(time.Duration)
	track.Apply("push_timeout", result)

	result = config.LoadEnvFloat("PUSH_RATE_LIMIT", cfg.RateLimit, func(v float64) error {
		return config.ValidateFloatRange(v, 0.1, 10000)
	})
	cfg.RateLimit = result.Value.(float64)
	track.Apply("push_rate_limit", result)

	result = config.LoadEnvInt("PUSH_BURST", cfg.Burst, func(v int) error {
		return config.ValidateIntRange(v, 1, 10000)
	})
	cfg.Burst = result.Value.(int)
	track.Apply("push_burst", result)

	result = config.LoadEnvInt("PUSH_PARALLELISM", cfg.Parallelism, func(v int) error {
		return config.ValidateIntRange(v, 1, 100)
	})
	cfg.Parallelism = result.Value.(int)
	track.Apply("push_parallelism", result)

	if cfg.Enabled && cfg.Endpoint == "" {
		track.Fallback("push_enabled", "PUSH_ENABLED is set but PUSH_ENDPOINT is missing or invalid, pushes will only be logged")
		cfg.Enabled = false
	}
	track.Done()

	return cfg
}
