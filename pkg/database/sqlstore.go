package database

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// SQLStore implements Store on database/sql for both Postgres and SQLite
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	health  *HealthChecker
	logger  *zap.Logger
}

func newSQLStore(db *sql.DB, d dialect) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: d,
		health:  NewHealthChecker(db, 2*time.Second),
		logger:  zap.L().With(zap.String("store", d.String())),
	}
}

// DB returns the underlying connection pool
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Migrate applies every pending embedded migration for this dialect
func (s *SQLStore) Migrate(ctx context.Context) error {
	runner, err := NewMigrationsRunner(s.db, s.dialect, s.logger)
	if err != nil {
		return err
	}
	return runner.Run(ctx)
}

// Health pings the database now and reports the outcome
func (s *SQLStore) Health(ctx context.Context) HealthStatus {
	return s.health.Check(ctx)
}

func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
