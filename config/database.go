package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ripplegate/ripplegate/internal/store"
)

func enableUUIDExtension(db *gorm.DB) error {
	return db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error
}

func InitDatabase(ctx context.Context, cfg *Config) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.IsProduction() {
		logLevel = logger.Error
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxDBConns)
	sqlDB.SetMaxIdleConns(cfg.MaxDBConns / 2)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := enableUUIDExtension(db); err != nil {
		return nil, err
	}
	if err := store.New(db).Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Default().InfoContext(ctx, "database ready",
		"module", "config",
		"operation", "init_database",
		"outcome", "success",
		"max_conns", cfg.MaxDBConns,
	)
	return db, nil
}

// InitRedis returns nil when no REDIS_URL is configured.
func InitRedis(ctx context.Context, cfg *Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
