package database

import (
	"context"
	"fmt"

	"healthbridge-backend/internal/config"
)

// Open connects to the configured backend and applies pending migrations.
func Open(ctx context.Context, cfg *config.Config) (DB, error) {
	var db DB
	switch cfg.StorageBackend {
	case "postgres":
		pool, err := NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		db = NewPgxDB(pool)
	case "sqlite":
		sqlDB, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		db = NewSQLDB(sqlDB)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
