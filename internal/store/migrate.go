package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/julienreichel/on-track-career-os-sub005/internal/logging"
)

// upMigrationName matches files like 0002_kanban.up.sql. The captured
// stem ("0002_kanban") is what schema_migrations records.
var upMigrationName = regexp.MustCompile(`^(\d+)_[A-Za-z0-9_]+\.up\.sql$`)

type migrationFile struct {
	version string
	path    string
}

// ApplyMigrations runs every pending up migration in version order, one
// transaction per file. Versions already recorded are skipped.
func ApplyMigrations(ctx context.Context, db *sql.DB, migrationsDir string, logger *zap.Logger) error {
	logger = logging.OrNop(logger).Named("migrate")

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	files, err := listMigrations(migrationsDir)
	if err != nil {
		return err
	}
	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}

	var count int
	for _, file := range files {
		if applied[file.version] {
			logger.Debug("migration already applied", zap.String("version", file.version))
			continue
		}
		started := time.Now()
		if err := applyMigration(ctx, db, file); err != nil {
			return err
		}
		count++
		logger.Info("migration applied",
			zap.String("version", file.version),
			zap.Duration("elapsed", time.Since(started)),
		)
	}
	logger.Info("schema up to date", zap.Int("applied", count), zap.Int("known", len(files)))
	return nil
}

// listMigrations returns the up files of dir sorted by version. Two files
// sharing a numeric prefix are rejected.
func listMigrations(dir string) ([]migrationFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var files []migrationFile
	seen := map[string]string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := upMigrationName.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		if other, dup := seen[match[1]]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %s", other, entry.Name(), match[1])
		}
		seen[match[1]] = entry.Name()
		files = append(files, migrationFile{
			version: entry.Name()[:len(entry.Name())-len(".up.sql")],
			path:    filepath.Join(dir, entry.Name()),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].version < files[j].version })
	return files, nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	applied := map[string]bool{}
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func applyMigration(ctx context.Context, db *sql.DB, file migrationFile) (err error) {
	body, err := os.ReadFile(file.path)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", file.version, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", file.version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, string(body)); err != nil {
		return fmt.Errorf("execute migration %s: %w", file.version, err)
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, file.version); err != nil {
		return fmt.Errorf("record migration %s: %w", file.version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", file.version, err)
	}
	return nil
}
