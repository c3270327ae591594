package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const sqlitePragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// Open opens the database for the given dialect and runs migrations.
// SQLite DSNs are file paths (or ":memory:"); Postgres DSNs are pgx connection strings.
func Open(ctx context.Context, d Dialect, dsn string) (*sql.DB, error) {
	var db *sql.DB
	var err error

	switch d {
	case SQLite:
		db, err = sql.Open(d.driverName(), dsn+sqlitePragmas)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		// Every connection to :memory: is a separate database.
		if dsn == ":memory:" {
			db.SetMaxOpenConns(1)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ping db: %w", err)
		}
	case Postgres:
		db, err = sql.Open(d.driverName(), dsn)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetConnMaxIdleTime(5 * time.Minute)
		if err := pingWithRetry(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("ping db: %w", err)
		}
	default:
		return nil, fmt.Errorf("open db: unsupported dialect %q", d)
	}

	if err := runMigrations(ctx, db, d); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// pingWithRetry waits for a database server that may still be starting.
func pingWithRetry(ctx context.Context, db *sql.DB) error {
	backoff := retry.WithMaxRetries(5, retry.NewExponential(250*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func runMigrations(ctx context.Context, db *sql.DB, d Dialect) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect(d.gooseDialect()); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}
