package store

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/huangsam/testhub/schema"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// MySQL error numbers treated as duplicates or constraint violations.
const (
	mysqlDupEntry        = 1062
	mysqlBadNull         = 1048
	mysqlRowIsReferenced = 1451
	mysqlNoReferenced    = 1452
)

// PostgreSQL SQLSTATE codes treated as duplicates.
const (
	pgUniqueViolation = "23505"
	pgCardinality     = "21000" // ON CONFLICT touching the same row twice
	pgIntegrityClass  = "23"
)

// sqlitePrimaryMask extracts the primary result code from an extended one.
const sqlitePrimaryMask = 0xff

// dialect holds everything that differs between vendors.
// It is resolved once per store from the backend.
type dialect struct {
	backend     schema.DatabaseBackend
	driver      string
	maxParams   int
	returning   bool // INSERT ... RETURNING id instead of LastInsertId
	quoteFn     func(string) string
	upsertFn    func(d *dialect, table string, cols, conflict, update []string, rows int) string
	duplicateFn func(error) bool
	integrityFn func(error) bool
	timeFn      func(time.Time) any
}

var dialects = map[schema.DatabaseBackend]*dialect{
	schema.SQLiteBackend: {
		backend:     schema.SQLiteBackend,
		driver:      "sqlite",
		maxParams:   32766,
		quoteFn:     doubleQuote,
		upsertFn:    onConflictUpsert,
		duplicateFn: sqliteDuplicate,
		integrityFn: sqliteIntegrity,
		timeFn:      func(t time.Time) any { return t.UTC().Format(time.RFC3339Nano) },
	},
	schema.MySQLBackend: {
		backend:     schema.MySQLBackend,
		driver:      "mysql",
		maxParams:   65535,
		quoteFn:     func(s string) string { return "`" + s + "`" },
		upsertFn:    onDuplicateKeyUpsert,
		duplicateFn: mysqlDuplicate,
		integrityFn: mysqlIntegrity,
		timeFn:      func(t time.Time) any { return t.UTC() },
	},
	schema.PostgreSQLBackend: {
		backend:     schema.PostgreSQLBackend,
		driver:      "pgx",
		maxParams:   65535,
		returning:   true,
		quoteFn:     doubleQuote,
		upsertFn:    onConflictUpsert,
		duplicateFn: pgDuplicate,
		integrityFn: pgIntegrity,
		timeFn:      func(t time.Time) any { return t.UTC() },
	},
}

// dialectFor returns the dialect of a SQL backend.
func dialectFor(backend schema.DatabaseBackend) (*dialect, error) {
	d, ok := dialects[backend]
	if !ok {
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
	return d, nil
}

func doubleQuote(s string) string { return `"` + s + `"` }

func (d *dialect) quote(name string) string { return d.quoteFn(name) }

// rebind rewrites '?' placeholders into the vendor form.
func (d *dialect) rebind(query string) string {
	if d.backend != schema.PostgreSQLBackend {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// upsert returns a multi-row insert of 'rows' rows that updates 'update' on a conflict over 'conflict'.
// Placeholders are '?' and must be rebound.
func (d *dialect) upsert(table string, cols, conflict, update []string, rows int) string {
	return d.upsertFn(d, table, cols, conflict, update, rows)
}

func (d *dialect) isDuplicate(err error) bool { return err != nil && d.duplicateFn(err) }

func (d *dialect) isIntegrity(err error) bool { return err != nil && d.integrityFn(err) }

func (d *dialect) timeValue(t time.Time) any { return d.timeFn(t) }

func valuesClause(cols, rows int) string {
	one := "(" + strings.TrimSuffix(strings.Repeat("?, ", cols), ", ") + ")"
	return strings.TrimSuffix(strings.Repeat(one+", ", rows), ", ")
}

func (d *dialect) quoteAll(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.quote(c)
	}
	return strings.Join(quoted, ", ")
}

func onConflictUpsert(d *dialect, table string, cols, conflict, update []string, rows int) string {
	sets := make([]string, len(update))
	for i, c := range update {
		sets[i] = fmt.Sprintf("%s = excluded.%s", d.quote(c), d.quote(c))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s ON CONFLICT (%s) DO UPDATE SET %s",
		d.quote(table), d.quoteAll(cols), valuesClause(len(cols), rows), d.quoteAll(conflict), strings.Join(sets, ", "))
}

func onDuplicateKeyUpsert(d *dialect, table string, cols, _, update []string, rows int) string {
	sets := make([]string, len(update))
	for i, c := range update {
		sets[i] = fmt.Sprintf("%s = new.%s", d.quote(c), d.quote(c))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s AS new ON DUPLICATE KEY UPDATE %s",
		d.quote(table), d.quoteAll(cols), valuesClause(len(cols), rows), strings.Join(sets, ", "))
}

func sqliteCode(err error) (int, bool) {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return 0, false
	}
	return se.Code(), true
}

func sqliteDuplicate(err error) bool {
	code, ok := sqliteCode(err)
	if !ok {
		return false
	}
	switch code {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		// Extended codes disabled
		return strings.Contains(err.Error(), "UNIQUE constraint failed")
	}
	return false
}

func sqliteIntegrity(err error) bool {
	code, ok := sqliteCode(err)
	return ok && code&sqlitePrimaryMask == sqlite3.SQLITE_CONSTRAINT
}

func mysqlDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDupEntry
}

func mysqlIntegrity(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	switch me.Number {
	case mysqlDupEntry, mysqlBadNull, mysqlRowIsReferenced, mysqlNoReferenced:
		return true
	}
	return false
}

func pgDuplicate(err error) bool {
	var pe *pgconn.PgError
	return errors.As(err, &pe) && (pe.Code == pgUniqueViolation || pe.Code == pgCardinality)
}

func pgIntegrity(err error) bool {
	var pe *pgconn.PgError
	return errors.As(err, &pe) && (strings.HasPrefix(pe.Code, pgIntegrityClass) || pe.Code == pgCardinality)
}
