// ABOUTME: Embedded per-dialect schema migrations run through golang-migrate
// ABOUTME: Shared by store startup and the standalone migrate command
package db

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// NewMigrator builds a migrator with its own connection to the database.
// The caller must Close it.
func NewMigrator(dialect, dsn string) (*migrate.Migrate, error) {
	var dir, url string
	switch dialect {
	case DialectSQLite:
		dir = "migrations/sqlite"
		url = "sqlite3://" + dsn
	case DialectPostgres:
		dir = "migrations/postgres"
		url = dsn
		if !strings.HasPrefix(url, "postgres://") && !strings.HasPrefix(url, "postgresql://") {
			return nil, fmt.Errorf("postgres migrations need a postgres:// URL")
		}
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}

	source, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}

// RunMigrations applies every pending migration. Already current is not an error.
func RunMigrations(dialect, dsn string) error {
	m, err := NewMigrator(dialect, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// SchemaVersion reports the applied migration version and dirty flag.
// A database with no migrations applied reports version 0.
func SchemaVersion(dialect, dsn string) (uint, bool, error) {
	m, err := NewMigrator(dialect, dsn)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()

	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, dirty, nil
}
