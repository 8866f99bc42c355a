// Package persistence stores completed optimization runs in Postgres
// (github.com/jmoiron/sqlx + lib/pq) and republishes in-flight progress
// to Redis (go-redis/v9) so out-of-process dashboards can subscribe
// without holding a reference to the orchestrator.
package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/metasched/metasched/internal/config"
)

// Manager owns the Postgres and Redis connections and the repositories
// built on top of them.
type Manager struct {
	DB     *sqlx.DB
	Redis  *redis.Client
	Runs   *RunRepository
	logger *slog.Logger
}

// NewManager connects to Postgres and Redis per cfg, applies the run
// history schema, and builds the repository set.
func NewManager(ctx context.Context, cfg *config.PersistenceConfig, logger *slog.Logger) (*Manager, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply run history schema: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: cfg.ConnTimeout,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	m := &Manager{DB: db, Redis: rdb, logger: logger}
	m.Runs = NewRunRepository(db, logger)
	return m, nil
}

// Close releases both connections.
func (m *Manager) Close() error {
	redisErr := m.Redis.Close()
	dbErr := m.DB.Close()
	if dbErr != nil {
		return fmt.Errorf("failed to close postgres: %w", dbErr)
	}
	if redisErr != nil {
		return fmt.Errorf("failed to close redis: %w", redisErr)
	}
	return nil
}
