package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"carlet-notify/internal/pkg/config"
)

// ApplicationName is reported to Postgres so worker sessions are easy to spot
// in pg_stat_activity.
const ApplicationName = "carlet-notify"

// PoolConfig holds the database/sql pool settings.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig sizes the pool for one worker: the listener holds its own
// connection, so the pool only serves handler reads and sweep deletes.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 15 * time.Minute,
	}
}

// LoadPoolConfigFromEnv reads DB_MAX_OPEN_CONNS, DB_MAX_IDLE_CONNS,
// DB_CONN_MAX_LIFETIME and DB_CONN_MAX_IDLE_TIME. Invalid values keep their
// default and add a warning. Idle connections never exceed open ones.
func LoadPoolConfigFromEnv() (PoolConfig, []string) {
	cfg := DefaultPoolConfig()
	var warnings []string

	intRange := func(min, max int) func(int) error {
		return func(v int) error { return config.ValidateIntRange(v, min, max) }
	}

	r := config.LoadEnvInt("DB_MAX_OPEN_CONNS", cfg.MaxOpenConns, intRange(1, 1000))
	cfg.MaxOpenConns = r.Value.(int)
	warnings = append(warnings, r.Warnings...)

	r = config.LoadEnvInt("DB_MAX_IDLE_CONNS", cfg.MaxIdleConns, intRange(0, 1000))
	cfg.MaxIdleConns = r.Value.(int)
	warnings = append(warnings, r.Warnings...)

	r = config.LoadEnvDuration("DB_CONN_MAX_LIFETIME", cfg.ConnMaxLifetime, config.ValidatePositiveDuration)
	cfg.ConnMaxLifetime = r.Value.(time.Duration)
	warnings = append(warnings, r.Warnings...)

	r = config.LoadEnvDuration("DB_CONN_MAX_IDLE_TIME", cfg.ConnMaxIdleTime, config.ValidatePositiveDuration)
	cfg.ConnMaxIdleTime = r.Value.(time.Duration)
	warnings = append(warnings, r.Warnings...)

	if cfg.MaxIdleConns > cfg.MaxOpenConns {
		warnings = append(warnings, fmt.Sprintf(
			"DB_MAX_IDLE_CONNS=%d exceeds DB_MAX_OPEN_CONNS=%d, using %d",
			cfg.MaxIdleConns, cfg.MaxOpenConns, cfg.MaxOpenConns))
		cfg.MaxIdleConns = cfg.MaxOpenConns
	}
	return cfg, warnings
}

// ErrMissingDSN is returned by Open when no connection string is configured.
var ErrMissingDSN = errors.New("DATABASE_URL not set")

// Open parses dsn, builds a pool with the DB_* settings and pings it.
// A malformed dsn is reported without dialing.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*sql.DB, error) {
	if dsn == "" {
		return nil, ErrMissingDSN
	}
	if logger == nil {
		logger = slog.Default()
	}

	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("Open: parse DATABASE_URL: %w", err)
	}
	if _, ok := connConfig.RuntimeParams["application_name"]; !ok {
		connConfig.RuntimeParams["application_name"] = ApplicationName
	}

	pool, warnings := LoadPoolConfigFromEnv()
	for _, w := range warnings {
		logger.Warn("Configuration fallback applied", slog.String("warning", w))
	}

	db := stdlib.OpenDB(*connConfig)
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("Open: ping: %w", err)
	}

	logger.Info("database connection established",
		slog.String("host", connConfig.Host),
		slog.String("database", connConfig.Database),
		slog.Int("max_open_conns", pool.MaxOpenConns),
		slog.Int("max_idle_conns", pool.MaxIdleConns),
		slog.Duration("conn_max_lifetime", pool.ConnMaxLifetime),
		slog.Duration("conn_max_idle_time", pool.ConnMaxIdleTime))
	return db, nil
}
