package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/huangsam/testhub/schema"
)

//go:embed migrations
var migrationsFS embed.FS

// MigrateResult reports what a migration run did.
type MigrateResult struct {
	From    uint
	To      uint
	Changed bool
}

// Migrate runs the embedded migrations of a backend on its own connection.
// - If targetVersion < 0, it migrates to the latest version.
// - If targetVersion == 0, it rolls back all migrations (to initial state).
// - If targetVersion > 0, it migrates to the specified version.
func Migrate(backend schema.DatabaseBackend, connStr string, targetVersion int) (MigrateResult, error) {
	if backend == schema.NoneBackend {
		return MigrateResult{}, errors.New("migrations are not supported for NoneBackend")
	}
	d, err := dialectFor(backend)
	if err != nil {
		return MigrateResult{}, err
	}
	dsn, err := driverDSN(backend, connStr)
	if err != nil {
		return MigrateResult{}, err
	}
	if backend == schema.MySQLBackend {
		// Migration files hold several statements each
		cfg, _ := mysql.ParseDSN(dsn)
		cfg.MultiStatements = true
		dsn = cfg.FormatDSN()
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return MigrateResult{}, fmt.Errorf("failed to open %s database: %w", backend, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return MigrateResult{}, fmt.Errorf("failed to ping database: %w", err)
	}

	m, err := newMigrate(db, backend)
	if err != nil {
		_ = db.Close()
		return MigrateResult{}, err
	}
	defer func() { _, _ = m.Close() }() // Also closes db

	return runMigration(m, targetVersion)
}

// migrateInPlace upgrades a database through an existing pool without closing it.
func migrateInPlace(db *sql.DB, backend schema.DatabaseBackend) (MigrateResult, error) {
	m, err := newMigrate(db, backend)
	if err != nil {
		return MigrateResult{}, err
	}
	return runMigration(m, -1)
}

func newMigrate(db *sql.DB, backend schema.DatabaseBackend) (*migrate.Migrate, error) {
	var driver database.Driver
	var err error
	switch backend {
	case schema.SQLiteBackend:
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	case schema.MySQLBackend:
		driver, err = migratemysql.WithInstance(db, &migratemysql.Config{})
	case schema.PostgreSQLBackend:
		driver, err = migratepgx.WithInstance(db, &migratepgx.Config{})
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s migrate driver: %w", backend, err)
	}

	sub, err := fs.Sub(migrationsFS, "migrations/"+string(backend))
	if err != nil {
		return nil, fmt.Errorf("failed to access migrations directory: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, string(backend), driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

func runMigration(m *migrate.Migrate, targetVersion int) (MigrateResult, error) {
	current, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return MigrateResult{}, fmt.Errorf("failed to get current migration version: %w", err)
	}
	if dirty {
		return MigrateResult{From: current}, fmt.Errorf("database is in a dirty state at version %d. Please fix manually or force version", current)
	}

	switch {
	case targetVersion < 0:
		err = m.Up()
	case targetVersion == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(targetVersion))
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return MigrateResult{From: current, To: current}, nil
	}
	if err != nil {
		return MigrateResult{From: current}, fmt.Errorf("failed to migrate to version %d: %w", targetVersion, err)
	}

	res := MigrateResult{From: current, Changed: true}
	if v, _, err := m.Version(); err == nil {
		res.To = v
	}
	return res, nil
}
