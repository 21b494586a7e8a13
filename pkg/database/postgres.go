package database

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/rotisserie/eris"
)

// NewPostgres connects to Postgres with the given DSN and verifies the
// connection before returning
func NewPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: open")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "postgres: ping")
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return newSQLStore(db, dialectPostgres), nil
}
