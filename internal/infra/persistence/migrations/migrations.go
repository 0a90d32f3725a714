// Package migrations applies the key-value table schema with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

//go:embed sql/*.sql
var files embed.FS

// Dialect names a supported SQL dialect.
type Dialect = database.Dialect

// Supported dialects.
const (
	SQLite   Dialect = database.DialectSQLite3
	Postgres Dialect = database.DialectPostgres
)

// FS returns the migration files.
func FS() fs.FS {
	sub, err := fs.Sub(files, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

// Up applies pending migrations and returns the resulting schema version.
func Up(ctx context.Context, db *sql.DB, dialect Dialect) (int64, error) {
	provider, err := goose.NewProvider(dialect, db, FS())
	if err != nil {
		return 0, fmt.Errorf("migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}
	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("migration version: %w", err)
	}
	return version, nil
}
