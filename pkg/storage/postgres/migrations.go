package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations returns the schema history in order
func Migrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create quotes table",
			SQL: `
				CREATE TABLE IF NOT EXISTS quotes (
					id SERIAL PRIMARY KEY,
					content TEXT NOT NULL CHECK (btrim(content) <> ''),
					author TEXT NOT NULL CHECK (btrim(author) <> ''),
					language VARCHAR(8) NOT NULL DEFAULT 'en' CHECK (char_length(language) >= 2),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					times_accessed INTEGER NOT NULL DEFAULT 0 CHECK (times_accessed >= 0)
				);
			`,
		},
		{
			Version:     2,
			Description: "Index quote author and language",
			SQL: `
				CREATE INDEX IF NOT EXISTS idx_quotes_author ON quotes(author);
				CREATE INDEX IF NOT EXISTS idx_quotes_language ON quotes(language);
			`,
		},
	}
}

// RunMigrations applies pending migrations, each in its own transaction, and
// returns the ones it applied.
func RunMigrations(ctx context.Context, db *sql.DB) ([]Migration, error) {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS quotes_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}

	var ran []Migration
	for _, migration := range Migrations() {
		if applied[migration.Version] {
			continue
		}
		if err := applyMigration(ctx, db, migration); err != nil {
			return ran, err
		}
		ran = append(ran, migration)
	}
	return ran, nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM quotes_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	versions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		versions[version] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}
	return versions, nil
}

func applyMigration(ctx context.Context, db *sql.DB, migration Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
		return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO quotes_migrations (version, description) VALUES ($1, $2)",
		migration.Version, migration.Description,
	); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
	}
	return nil
}
