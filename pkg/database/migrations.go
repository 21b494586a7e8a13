package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

//go:embed sql/postgres/*.sql sql/sqlite/*.sql
var migrationFiles embed.FS

// Migration represents a single schema migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationsRunner applies embedded migrations for one dialect
type MigrationsRunner struct {
	db         *sql.DB
	dialect    dialect
	logger     *zap.Logger
	migrations []Migration
}

// NewMigrationsRunner loads the migrations shipped for d
func NewMigrationsRunner(db *sql.DB, d dialect, logger *zap.Logger) (*MigrationsRunner, error) {
	runner := &MigrationsRunner{
		db:      db,
		dialect: d,
		logger:  logger,
	}

	if err := runner.loadMigrations(); err != nil {
		return nil, eris.Wrap(err, "load migrations")
	}

	return runner, nil
}

// Migrations returns the loaded migrations in version order
func (r *MigrationsRunner) Migrations() []Migration {
	return r.migrations
}

// loadMigrations reads sql/<dialect>/NNNNNN_name.up.sql
func (r *MigrationsRunner) loadMigrations() error {
	dir := path.Join("sql", r.dialect.String())
	entries, err := migrationFiles.ReadDir(dir)
	if err != nil {
		return eris.Wrapf(err, "read migration directory %s", dir)
	}

	for _, entry := range entries {
		filename := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(filename, ".up.sql") {
			continue
		}

		version, name, ok := parseMigrationName(filename)
		if !ok {
			r.logger.Warn("skipping invalid migration file", zap.String("file", filename))
			continue
		}

		content, err := migrationFiles.ReadFile(path.Join(dir, filename))
		if err != nil {
			return eris.Wrapf(err, "read migration file %s", filename)
		}

		r.migrations = append(r.migrations, Migration{
			Version: version,
			Name:    name,
			SQL:     string(content),
		})
	}

	sort.Slice(r.migrations, func(i, j int) bool {
		return r.migrations[i].Version < r.migrations[j].Version
	})

	return nil
}

func parseMigrationName(filename string) (int, string, bool) {
	prefix, rest, found := strings.Cut(filename, "_")
	if !found {
		return 0, "", false
	}
	var version int
	if _, err := fmt.Sscanf(prefix, "%d", &version); err != nil {
		return 0, "", false
	}
	return version, strings.TrimSuffix(rest, ".up.sql"), true
}

func (r *MigrationsRunner) createMigrationsTable(ctx context.Context) error {
	appliedAt := "TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP"
	if r.dialect == dialectSQLite {
		appliedAt = "DATETIME DEFAULT CURRENT_TIMESTAMP"
	}
	query := `
        CREATE TABLE IF NOT EXISTS schema_migrations (
            version INTEGER PRIMARY KEY,
            name VARCHAR(255) NOT NULL,
            applied_at ` + appliedAt + `
        )
    `
	_, err := r.db.ExecContext(ctx, query)
	return err
}

// AppliedVersions returns the set of migration versions already recorded
func (r *MigrationsRunner) AppliedVersions(ctx context.Context) (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := r.db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// Run executes all pending migrations, each in its own transaction
func (r *MigrationsRunner) Run(ctx context.Context) error {
	if err := r.createMigrationsTable(ctx); err != nil {
		return eris.Wrap(err, "create migrations table")
	}

	applied, err := r.AppliedVersions(ctx)
	if err != nil {
		return eris.Wrap(err, "get applied migrations")
	}

	pending := 0
	for _, m := range r.migrations {
		if !applied[m.Version] {
			pending++
		}
	}
	if pending == 0 {
		r.logger.Debug("no pending migrations")
		return nil
	}

	r.logger.Info("applying migrations", zap.Int("pending", pending))

	args := &argList{dialect: r.dialect}
	record := "INSERT INTO schema_migrations (version, name) VALUES (" + args.add(nil) + ", " + args.add(nil) + ")"

	for _, m := range r.migrations {
		if applied[m.Version] {
			continue
		}

		if err := r.apply(ctx, m, record); err != nil {
			return err
		}

		r.logger.Info("applied migration", zap.Int("version", m.Version), zap.String("name", m.Name))
	}

	return nil
}

func (r *MigrationsRunner) apply(ctx context.Context, m Migration, record string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "start transaction")
	}

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		tx.Rollback() //nolint:errcheck
		return eris.Wrapf(err, "apply migration %d (%s)", m.Version, m.Name)
	}

	if _, err := tx.ExecContext(ctx, record, m.Version, m.Name); err != nil {
		tx.Rollback() //nolint:errcheck
		return eris.Wrapf(err, "record migration %d", m.Version)
	}

	return eris.Wrapf(tx.Commit(), "commit migration %d", m.Version)
}
