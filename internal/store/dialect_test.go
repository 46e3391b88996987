package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/huangsam/testhub/schema"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectFor(t *testing.T) {
	for _, b := range []schema.DatabaseBackend{schema.SQLiteBackend, schema.MySQLBackend, schema.PostgreSQLBackend} {
		d, err := dialectFor(b)
		require.NoError(t, err)
		assert.Equal(t, b, d.backend)
	}
	_, err := dialectFor(schema.NoneBackend)
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	q := "SELECT id FROM t WHERE a = ? AND b = ?"
	assert.Equal(t, q, dialects[schema.SQLiteBackend].rebind(q))
	assert.Equal(t, q, dialects[schema.MySQLBackend].rebind(q))
	assert.Equal(t, "SELECT id FROM t WHERE a = $1 AND b = $2", dialects[schema.PostgreSQLBackend].rebind(q))
}

func TestUpsertStatements(t *testing.T) {
	cols := []string{"k", "v"}
	conflict := []string{"k"}
	update := []string{"v"}

	assert.Equal(t,
		`INSERT INTO "t" ("k", "v") VALUES (?, ?), (?, ?) ON CONFLICT ("k") DO UPDATE SET "v" = excluded."v"`,
		dialects[schema.SQLiteBackend].upsert("t", cols, conflict, update, 2))
	assert.Equal(t,
		"INSERT INTO `t` (`k`, `v`) VALUES (?, ?) AS new ON DUPLICATE KEY UPDATE `v` = new.`v`",
		dialects[schema.MySQLBackend].upsert("t", cols, conflict, update, 1))

	pg := dialects[schema.PostgreSQLBackend]
	assert.Equal(t,
		`INSERT INTO "t" ("k", "v") VALUES ($1, $2), ($3, $4) ON CONFLICT ("k") DO UPDATE SET "v" = excluded."v"`,
		pg.rebind(pg.upsert("t", cols, conflict, update, 2)))
}

func TestDuplicateSignatures(t *testing.T) {
	my := dialects[schema.MySQLBackend]
	dup := fmt.Errorf("exec: %w", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	assert.True(t, my.isDuplicate(dup))
	assert.True(t, my.isIntegrity(dup))
	assert.False(t, my.isDuplicate(&mysql.MySQLError{Number: 1452}))
	assert.True(t, my.isIntegrity(&mysql.MySQLError{Number: 1452}))
	assert.False(t, my.isIntegrity(&mysql.MySQLError{Number: 1205}))

	pg := dialects[schema.PostgreSQLBackend]
	assert.True(t, pg.isDuplicate(&pgconn.PgError{Code: "23505"}))
	assert.True(t, pg.isDuplicate(&pgconn.PgError{Code: "21000"}))
	assert.False(t, pg.isDuplicate(&pgconn.PgError{Code: "23502"}))
	assert.True(t, pg.isIntegrity(&pgconn.PgError{Code: "23502"}))
	assert.False(t, pg.isIntegrity(&pgconn.PgError{Code: "08006"}))

	for _, d := range dialects {
		assert.False(t, d.isDuplicate(nil))
		assert.False(t, d.isDuplicate(errors.New("connection reset")))
	}
}
