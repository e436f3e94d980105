package storage

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/vencura/vencura/internal/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration direction
const (
	MigrateUp   = "up"
	MigrateDown = "down"
)

// Migrate applies (or reverts) embedded migrations. steps limits how many
// are run; 0 means all. Returns the versions that were run.
func (s *Store) Migrate(ctx context.Context, direction string, steps int) ([]string, error) {
	if direction != MigrateUp && direction != MigrateDown {
		return nil, fmt.Errorf("invalid migration direction: %s", direction)
	}

	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.appliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	suffix := "." + direction + ".sql"
	files, err := migrationNames(suffix)
	if err != nil {
		return nil, err
	}
	if direction == MigrateDown {
		for i, j := 0, len(files)-1; i < j; i, j = i+1, j-1 {
			files[i], files[j] = files[j], files[i]
		}
	}

	var ran []string
	for _, name := range files {
		version := strings.TrimSuffix(name, suffix)
		if applied[version] == (direction == MigrateUp) {
			continue
		}
		if steps > 0 && len(ran) >= steps {
			break
		}

		content, err := migrationFiles.ReadFile("migrations/" + name)
		if err != nil {
			return ran, fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		if err := s.runMigration(ctx, direction, version, string(content)); err != nil {
			return ran, fmt.Errorf("migration %s: %w", name, err)
		}

		logger.Info(ctx, "applied migration", "version", version, "direction", direction)
		ran = append(ran, version)
	}

	return ran, nil
}

func (s *Store) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (s *Store) runMigration(ctx context.Context, direction, version, sql string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, sql); err != nil {
		return err
	}

	if direction == MigrateUp {
		_, err = tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version)
	} else {
		_, err = tx.Exec(ctx, "DELETE FROM schema_migrations WHERE version = $1", version)
	}
	if err != nil {
		return fmt.Errorf("failed to update migrations table: %w", err)
	}

	return tx.Commit(ctx)
}

func migrationNames(suffix string) ([]string, error) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), suffix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
