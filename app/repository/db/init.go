package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"stock-service/config"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed schema.sql
var schemaSQL string

func NewPostgres(cfg config.DbConfig) (*sql.DB, error) {
	return openPool(cfg, 20, 5)
}

// NewLockPool opens a pool reserved for advisory lock sessions. Held locks pin
// their connection, so they must not draw from the pool transactions use.
func NewLockPool(cfg config.DbConfig, size int) (*sql.DB, error) {
	return openPool(cfg, size, size)
}

func openPool(cfg config.DbConfig, maxOpen, maxIdle int) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s TimeZone=UTC",
		cfg.Username,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DbName,
		cfg.SSLMode,
	)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return db, nil
}

// Migrate applies the fixed schema. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		slog.ErrorContext(ctx, "[db] Migrate", "execContext", err)
		return fmt.Errorf("migrate: %w", err)
	}
	slog.InfoContext(ctx, "[db] Migrate", "status", "schema applied")
	return nil
}
