// Package config loads settings from environment variables with a fail-open
// strategy: a missing value silently keeps its default, an invalid value keeps
// its default and produces a warning the caller can log and count.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ConfigLoadResult is the outcome of loading one environment variable.
//
// Value always holds a usable value of the requested type (the parsed value
// or the default). FallbackApplied is true only when a non-empty value was
// rejected; Warnings then explains why.
type ConfigLoadResult struct {
	Value           interface{}
	Warnings        []string
	FallbackApplied bool
}

// LoadEnvString returns the variable's value, or defaultValue when unset or empty.
func LoadEnvString(envKey, defaultValue string) string {
	if value := os.Getenv(envKey); value != "" {
		return value
	}
	return defaultValue
}

// LoadEnvWithFallback loads a string and checks it with validator (may be nil).
//
// Warning format:
//
//	Invalid SWEEP_SCHEDULE='bad': <validator error>, falling back to default '@every 5m'
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) ConfigLoadResult {
	return load(envKey, defaultValue, func(s string) (string, error) { return s, nil }, validator)
}

// LoadEnvDuration loads a time.ParseDuration string ("30s", "2m", "24h").
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) ConfigLoadResult {
	return load(envKey, defaultValue, time.ParseDuration, validator)
}

// LoadEnvInt loads a base-10 integer.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) ConfigLoadResult {
	return load(envKey, defaultValue, func(s string) (int, error) {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, errors.New("invalid integer format")
		}
		return v, nil
	}, validator)
}

// LoadEnvFloat loads a decimal number such as a rate limit ("50", "12.5").
func LoadEnvFloat(envKey string, defaultValue float64, validator func(float64) error) ConfigLoadResult {
	return load(envKey, defaultValue, func(s string) (float64, error) {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errors.New("invalid number format")
		}
		return v, nil
	}, validator)
}

// LoadEnvBool loads a strconv.ParseBool value ("1", "t", "true", "0", "f", "false", ...).
func LoadEnvBool(envKey string, defaultValue bool) ConfigLoadResult {
	return load(envKey, defaultValue, func(s string) (bool, error) {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return false, errors.New("invalid boolean format, expected 'true' or 'false'")
		}
		return v, nil
	}, nil)
}

func load[T any](envKey string, defaultValue T, parse func(string) (T, error), validator func(T) error) ConfigLoadResult {
	raw := os.Getenv(envKey)
	if raw == "" {
		return ConfigLoadResult{Value: defaultValue}
	}

	fallback := func(err error) ConfigLoadResult {
		return ConfigLoadResult{
			Value: defaultValue,
			Warnings: []string{fmt.Sprintf("Invalid %s='%s': %v, falling back to default '%v'",
				envKey, raw, err, defaultValue)},
			FallbackApplied: true,
		}
	}

	value, err := parse(raw)
	if err != nil {
		return fallback(err)
	}
	if validator != nil {
		if err := validator(value); err != nil {
			return fallback(err)
		}
	}
	return ConfigLoadResult{Value: value}
}
