package database

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"time"

	"healthbridge-backend/internal/logging"
)

//go:embed migrations
var migrationFiles embed.FS

type migration struct {
	version int
	name    string
	up      func(ctx context.Context, tx Tx, d Dialect) error
}

// Every step must be safe on a fresh database and on one written by an
// older release that never recorded schema_migrations.
var migrations = []migration{
	{1, "initial_schema", execFile("001_initial_schema.sql")},
	{2, "summary_columns", addSummaryColumns},
	{3, "sleep_sessions_unique", dedupeSleepSessions},
	{4, "meal_tables", execFile("004_meal_tables.sql")},
}

func RunMigrations(ctx context.Context, db DB) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	// Create migrations tracking table
	_, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE version = $1", m.version).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to check migration %d: %w", m.version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", m.version, err)
		}

		if err := m.up(ctx, tx, db.Dialect()); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("failed to execute migration %d (%s): %w", m.version, m.name, err)
		}

		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version, name, applied_at) VALUES ($1, $2, $3)",
			m.version, m.name, time.Now().UTC().Format(time.RFC3339)); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}

		logging.Info().Int("version", m.version).Str("name", m.name).Str("dialect", db.Dialect().String()).Msg("applied migration")
	}

	return nil
}

func execFile(name string) func(ctx context.Context, tx Tx, d Dialect) error {
	return func(ctx context.Context, tx Tx, d Dialect) error {
		content, err := migrationFiles.ReadFile("migrations/" + d.String() + "/" + name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		_, err = tx.Exec(ctx, string(content))
		return err
	}
}

type column struct {
	table, name, sqlType string
}

var addedColumns = []column{
	{"daily_summary", "basal_calories", "REAL"},
	{"daily_summary", "vo2_max", "REAL"},
	{"daily_summary", "min_hr", "REAL"},
	{"daily_summary", "max_hr", "REAL"},
	{"daily_summary", "walking_hr_avg", "REAL"},
	{"daily_summary", "bmi", "REAL"},
	{"daily_summary", "blood_pressure_systolic", "REAL"},
	{"daily_summary", "blood_pressure_diastolic", "REAL"},
	{"daily_summary", "body_temperature_c", "REAL"},
	{"sleep_sessions", "updated_at", "TEXT"},
}

func addSummaryColumns(ctx context.Context, tx Tx, d Dialect) error {
	for _, c := range addedColumns {
		if err := ensureColumn(ctx, tx, d, c); err != nil {
			return err
		}
	}
	return nil
}

// ensureColumn adds a column unless it already exists. Postgres supports
// IF NOT EXISTS; SQLite reports "duplicate column name", which is the
// expected steady state and is ignored.
func ensureColumn(ctx context.Context, tx Tx, d Dialect, c column) error {
	if d == Postgres {
		sqlType := c.sqlType
		if sqlType == "REAL" {
			sqlType = "DOUBLE PRECISION"
		}
		_, err := tx.Exec(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", c.table, c.name, sqlType))
		return err
	}

	_, err := tx.Exec(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", c.table, c.name, c.sqlType))
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
		return nil
	}
	return err
}

// dedupeSleepSessions re-dates sessions by their wake-up date, keeps the
// newest row per (date, start_time) and then enforces that key.
func dedupeSleepSessions(ctx context.Context, tx Tx, d Dialect) error {
	steps := []string{
		`UPDATE sleep_sessions SET date = substr(end_time, 1, 10) WHERE date <> substr(end_time, 1, 10)`,
		`DELETE FROM sleep_sessions WHERE id NOT IN (
			SELECT MAX(id) FROM sleep_sessions GROUP BY date, start_time
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sleep_date_start ON sleep_sessions(date, start_time)`,
	}
	for _, stmt := range steps {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
