package db

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// Drivers that Connect knows how to open.
const (
	DriverSQLite   = "sqlite3"
	DriverLibSQL   = "libsql"
	DriverPostgres = "postgres"
	DriverPGX      = "pgx"
)

// Connect opens and pings a database. For libsql an auth token is appended
// to the url the way Turso expects it.
func Connect(ctx context.Context, driver, dsn, authToken string) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres, DriverPGX:
	case DriverLibSQL:
		if authToken != "" {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn = fmt.Sprintf("%s%sauthToken=%s", dsn, sep, authToken)
		} else if !strings.HasPrefix(dsn, "file:") {
			slog.Warn("libsql database opened without an auth token")
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is not set")
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// one writer keeps sqlite from answering "database is locked"
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// InitSchema creates the necessary tables if they don't exist.
func InitSchema(ctx context.Context, db *sqlx.DB) error {
	slog.Debug("initializing database schema", "driver", db.DriverName())

	queries := []string{
		`CREATE TABLE IF NOT EXISTS config (
			section TEXT NOT NULL,
			name TEXT NOT NULL,
			value TEXT NOT NULL,
			updated BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (section, name)
		)`,
	}

	for _, q := range queries {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to execute query %q: %w", q, err)
		}
	}
	return nil
}
