// Package store persists scan summaries to SQLite, MySQL or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/huangsam/testhub/internal/contract"
	"github.com/huangsam/testhub/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// pingTimeout bounds the connectivity check done by Open.
const pingTimeout = 10 * time.Second

// Options tune the connection pool and the batch executor.
type Options struct {
	MaxOpenConns int
	MaxIdleConns int
	BatchSize    int
	Now          func() time.Time // Clock for created_at/updated_at columns
}

func (o Options) withDefaults() Options {
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = contract.DefaultMaxOpenConns
	}
	if o.MaxIdleConns < 0 {
		o.MaxIdleConns = contract.DefaultMaxIdleConns
	}
	if o.BatchSize <= 0 {
		o.BatchSize = contract.DefaultBatchSize
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// SQLStore is the relational Store implementation.
type SQLStore struct {
	db      *sql.DB
	d       *dialect
	connStr string
	opts    Options
}

var _ contract.ScanStore = &SQLStore{} // Compile-time check

// New returns the store selected by the configuration.
// NoneBackend yields a store that keeps nothing.
func New(cfg *contract.Config) (contract.ScanStore, error) {
	if cfg.DBBackend == schema.NoneBackend {
		return NoopStore{}, nil
	}
	return Open(cfg.DBBackend, cfg.DBConnect, Options{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
		BatchSize:    cfg.BatchSize,
	})
}

// Open connects to a SQL backend and verifies the connection.
// It does not create tables; call EnsureSchema for that.
func Open(backend schema.DatabaseBackend, connStr string, opts Options) (*SQLStore, error) {
	d, err := dialectFor(backend)
	if err != nil {
		return nil, contract.Wrap(contract.ErrConfig, "open store", err)
	}
	opts = opts.withDefaults()

	dsn, err := driverDSN(backend, connStr)
	if err != nil {
		return nil, contract.Wrap(contract.ErrConfig, "open store", err)
	}
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, contract.Wrap(contract.ErrConnectivity, fmt.Sprintf("open %s database", backend), err)
	}

	switch backend {
	case schema.SQLiteBackend:
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
	default:
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, contract.Wrap(contract.ErrConnectivity,
			fmt.Sprintf("connect to %s database. Check that the server is running and connection parameters are valid", backend), err)
	}

	return &SQLStore{db: db, d: d, connStr: dsn, opts: opts}, nil
}

// driverDSN normalizes the connection string for the driver.
func driverDSN(backend schema.DatabaseBackend, connStr string) (string, error) {
	switch backend {
	case schema.SQLiteBackend:
		if connStr == "" {
			return contract.GetDBFilePath(), nil
		}
		return connStr, nil
	case schema.MySQLBackend:
		cfg, err := mysql.ParseDSN(connStr)
		if err != nil {
			return "", fmt.Errorf("invalid MySQL connection string: %w", err)
		}
		cfg.ParseTime = true
		return cfg.FormatDSN(), nil
	default:
		return connStr, nil
	}
}

// Backend returns the backend this store talks to.
func (s *SQLStore) Backend() schema.DatabaseBackend { return s.d.backend }

// DB exposes the pool for tests and tools.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Close closes the underlying connection pool.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// EnsureSchema migrates the database to the latest version.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var err error
	if s.d.backend == schema.SQLiteBackend {
		// Migrate in place so in-memory databases see the tables.
		_, err = migrateInPlace(s.db, s.d.backend)
	} else {
		_, err = Migrate(s.d.backend, s.connStr, -1)
	}
	if err != nil {
		return contract.Wrap(contract.ErrConnectivity, "ensure schema", err)
	}
	return nil
}

// classify maps a driver error to a domain error kind.
func (s *SQLStore) classify(msg string, err error) error {
	if s.d.isIntegrity(err) {
		return contract.Wrap(contract.ErrConstraint, msg, err)
	}
	return contract.Wrap(contract.ErrConnectivity, msg, err)
}
